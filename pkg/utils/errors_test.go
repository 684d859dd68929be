package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"timeout", fmt.Errorf("%w: slow host", ErrTimeout), true},
		{"connection", fmt.Errorf("%w: connection refused", ErrConnection), true},
		{"server 5xx", fmt.Errorf("%w: status 503", ErrServerHTTPError), false},
		{"client 4xx", fmt.Errorf("%w: status 404", ErrClientHTTPError), false},
		{"other status", fmt.Errorf("%w: status 301", ErrOtherHTTPError), false},
		{"filesystem", fmt.Errorf("%w: disk full", ErrFilesystem), false},
		{"request creation", fmt.Errorf("%w: bad url", ErrRequestCreation), false},
		{"unrelated", errors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err))
		})
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category string
	}{
		{"nil", nil, "None"},
		{"timeout", fmt.Errorf("%w: deadline", ErrTimeout), "Network_Timeout"},
		{"refused", fmt.Errorf("%w: dial tcp: connection refused", ErrConnection), "Network_ConnectionRefused"},
		{"dns", fmt.Errorf("%w: no such host", ErrConnection), "Network_DNSLookup"},
		{"other connection", fmt.Errorf("%w: broken pipe", ErrConnection), "Network_ConnectionOther"},
		{"http 404", fmt.Errorf("%w: status 404 404 Not Found", ErrClientHTTPError), "HTTP_404"},
		{"http 403", fmt.Errorf("%w: status 403 403 Forbidden", ErrClientHTTPError), "HTTP_403"},
		{"http 4xx", fmt.Errorf("%w: status 410 410 Gone", ErrClientHTTPError), "HTTP_4xx"},
		{"http 5xx", fmt.Errorf("%w: status 500", ErrServerHTTPError), "HTTP_5xx"},
		{"empty body", fmt.Errorf("%w: '/out/a.pdf'", ErrEmptyBody), "Network_EmptyBody"},
		{"filesystem", fmt.Errorf("%w: no space left", ErrFilesystem), "IOError"},
		{"database", fmt.Errorf("%w: conflict", ErrDatabase), "Database"},
		{"cancelled", context.Canceled, "Cancelled"},
		{"deadline", context.DeadlineExceeded, "Network_Timeout"},
		{"unknown", errors.New("mystery"), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, CategorizeError(tt.err))
		})
	}
}
