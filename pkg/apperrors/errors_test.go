package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestInvalidArgument(t *testing.T) {
	t.Parallel()
	err := InvalidArgument("format", "unsupported job definition format")

	if !errors.Is(err, ErrInvalidArgument) {
		t.Error("expected error to match ErrInvalidArgument")
	}
	if err.Error() != "unsupported job definition format" {
		t.Errorf("expected message 'unsupported job definition format', got %q", err.Error())
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.Field != "format" {
		t.Errorf("expected field 'format', got %q", appErr.Field)
	}
}

func TestNotFound(t *testing.T) {
	t.Parallel()
	err := NotFound("job", "nightly-backup")

	if !errors.Is(err, ErrNotFound) {
		t.Error("expected error to match ErrNotFound")
	}
	if err.Error() != "job nightly-backup not found" {
		t.Errorf("expected message 'job nightly-backup not found', got %q", err.Error())
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.Resource != "job" {
		t.Errorf("expected resource 'job', got %q", appErr.Resource)
	}
}

func TestUnsupportedOperation(t *testing.T) {
	t.Parallel()
	err := UnsupportedOperation("executions", 5, 2)

	if !errors.Is(err, ErrUnsupportedOperation) {
		t.Error("expected error to match ErrUnsupportedOperation")
	}
	if err.Error() != "executions requires API version 5 or higher (have 2)" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.Op != "executions" {
		t.Errorf("expected op 'executions', got %q", appErr.Op)
	}
}

func TestMalformedResponse(t *testing.T) {
	t.Parallel()
	cause := fmt.Errorf("XML syntax error on line 1")
	err := MalformedResponse("envelope.parse", cause)

	if !errors.Is(err, ErrMalformedResponse) {
		t.Error("expected error to match ErrMalformedResponse")
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.Cause != cause {
		t.Error("expected cause to be preserved")
	}
}

type fakeEnvelope struct{ msg string }

func (f *fakeEnvelope) Body() string    { return "<result/>" }
func (f *fakeEnvelope) Message() string { return f.msg }
func (f *fakeEnvelope) APIVersion() int { return 11 }

func TestServer(t *testing.T) {
	t.Parallel()
	env := &fakeEnvelope{msg: "job does not exist"}
	err := Server(env.Message(), env)

	if !errors.Is(err, ErrServer) {
		t.Error("expected error to match ErrServer")
	}
	if err.Error() != "job does not exist" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.Envelope == nil {
		t.Fatal("expected envelope to be retained")
	}
	if appErr.Envelope.Body() != "<result/>" {
		t.Errorf("unexpected envelope body: %q", appErr.Envelope.Body())
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()
	err := HTTPStatus(503)

	if !errors.Is(err, ErrHTTP) {
		t.Error("expected error to match ErrHTTP")
	}
	if err.Error() != "HTTP 503" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected error to be *Error")
	}
	if appErr.StatusCode != 503 {
		t.Errorf("expected status code 503, got %d", appErr.StatusCode)
	}
}

func TestErrorsIsWithWrapping(t *testing.T) {
	t.Parallel()
	// Ensure errors.Is works through fmt.Errorf wrapping
	original := Authentication("password or username is incorrect")
	wrapped := fmt.Errorf("login: %w", original)
	doubleWrapped := fmt.Errorf("client: %w", wrapped)

	if !errors.Is(doubleWrapped, ErrAuthentication) {
		t.Error("expected errors.Is to find ErrAuthentication through multiple wraps")
	}
}
