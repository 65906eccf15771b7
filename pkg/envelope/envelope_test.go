package envelope

import (
	"errors"
	"testing"

	"rundeck/pkg/apperrors"
)

func TestNew_Success(t *testing.T) {
	t.Parallel()
	body := `<result success="true" apiversion="11"><success><message>Job was deleted</message></success></result>`

	e, err := New(body, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.Success() {
		t.Error("expected success")
	}
	if e.APIVersion() != 11 {
		t.Errorf("expected api version 11, got %d", e.APIVersion())
	}
	if e.Message() != "Job was deleted" {
		t.Errorf("unexpected message: %q", e.Message())
	}
	if e.ClientAPIVersion() != 11 {
		t.Errorf("expected client api version 11, got %d", e.ClientAPIVersion())
	}
}

func TestNew_Error(t *testing.T) {
	t.Parallel()
	body := `<result error="true" apiversion="11"><error><message>Job does not exist</message></error></result>`

	e, err := New(body, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Success() {
		t.Error("expected failure: no success attribute present")
	}
	if e.Message() != "Job does not exist" {
		t.Errorf("unexpected message: %q", e.Message())
	}
}

func TestMessage_FallbackLiterals(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "success without message element",
			body: `<result success="true" apiversion="11"/>`,
			want: "success",
		},
		{
			name: "success element without message child",
			body: `<result success="true" apiversion="11"><success/></result>`,
			want: "success",
		},
		{
			name: "error without message element",
			body: `<result apiversion="11"/>`,
			want: "error",
		},
		{
			name: "error element without message child",
			body: `<result apiversion="11"><error/></result>`,
			want: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, err := New(tt.body, 11)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.Message() != tt.want {
				t.Errorf("Message() = %q, want %q", e.Message(), tt.want)
			}
		})
	}
}

func TestNew_MalformedBody(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{"unclosed element", `<result><success>`},
		{"not xml", `{"success": true}`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.body, 11)
			if !errors.Is(err, apperrors.ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestAPIVersion_AbsentOrInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want int
	}{
		{"absent", `<result success="true"/>`, -1},
		{"not a number", `<result apiversion="eleven" success="true"/>`, -1},
		{"present", `<result apiversion="5" success="true"/>`, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, err := New(tt.body, 11)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.APIVersion() != tt.want {
				t.Errorf("APIVersion() = %d, want %d", e.APIVersion(), tt.want)
			}
		})
	}
}

func TestCheckError(t *testing.T) {
	t.Parallel()

	ok, err := New(`<result success="true" apiversion="11"/>`, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ok.CheckError(); err != nil {
		t.Errorf("expected no error for successful envelope, got %v", err)
	}

	failed, err := New(`<result apiversion="11"><error><message>boom</message></error></result>`, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkErr := failed.CheckError()
	if !errors.Is(checkErr, apperrors.ErrServer) {
		t.Fatalf("expected ErrServer, got %v", checkErr)
	}
	if checkErr.Error() != "boom" {
		t.Errorf("expected message 'boom', got %q", checkErr.Error())
	}

	var appErr *apperrors.Error
	if !errors.As(checkErr, &appErr) {
		t.Fatal("expected *apperrors.Error")
	}
	if appErr.Envelope == nil || appErr.Envelope.Body() != failed.Body() {
		t.Error("expected the originating envelope to be attached")
	}

	// Explicit message overrides the derived one.
	overridden := failed.CheckError("delete failed")
	if overridden.Error() != "delete failed" {
		t.Errorf("expected overridden message, got %q", overridden.Error())
	}
}

func TestDerivedFields_StableAcrossCalls(t *testing.T) {
	t.Parallel()
	e, err := New(`<result success="true" apiversion="11"><success><message>ok</message></success></result>`, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if e.Message() != "ok" {
			t.Fatalf("call %d: Message() = %q, want %q", i, e.Message(), "ok")
		}
		if !e.Success() {
			t.Fatalf("call %d: Success() changed", i)
		}
		if e.Pretty() == "" {
			t.Fatalf("call %d: Pretty() empty", i)
		}
		if e.Pretty() != e.Pretty() {
			t.Fatalf("call %d: Pretty() not stable", i)
		}
	}
}

func TestAsStructured_NoTransform(t *testing.T) {
	t.Parallel()
	e, err := New(`<result success="true" apiversion="11"/>`, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := e.AsStructured()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result without a transform, got %#v", res)
	}
}

func TestAsStructured_UnknownTransformName(t *testing.T) {
	t.Parallel()
	e, err := NewTransformed(`<result success="true" apiversion="11"/>`, 11, "no_such_transform")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := e.AsStructured()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result for unknown transform name, got %#v", res)
	}
}
