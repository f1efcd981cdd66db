package apierror

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"testing"
)

const seqNoConflictBody = `{"error":{"root_cause":[{"type":"version_conflict_engine_exception",
"reason":"[1]: version conflict, required seqNo [3], primary term [1]. current document has seqNo [4] and primary term [1]"}],
"type":"version_conflict_engine_exception",
"reason":"[1]: version conflict, required seqNo [3], primary term [1]. current document has seqNo [4] and primary term [1]",
"index":"orders"},"status":409}`

func TestTranslate_SeqNoConflict(t *testing.T) {
	err := fmt.Errorf("indexing document: %w", NewStatusError(409, []byte(seqNoConflictBody)))

	for i := 0; i < 2; i++ {
		got := Translate(err)
		if !errors.Is(got, ErrOptimisticLockingFailure) {
			t.Fatalf("attempt %d: expected optimistic locking failure, got %v", i, got)
		}
	}
}

func TestTranslate_VersionConflictWithoutSeqNo(t *testing.T) {
	body := `{"error":{"type":"version_conflict_engine_exception","reason":"[1]: version conflict, current version [2] is higher or equal to the one provided [1]"},"status":409}`
	got := Translate(NewStatusError(409, []byte(body)))

	var ue *UncategorizedError
	if !errors.As(got, &ue) {
		t.Fatalf("expected uncategorized error, got %v", got)
	}
	if ue.Status != 409 {
		t.Errorf("expected status 409, got %d", ue.Status)
	}
}

func TestTranslate_IndexNotFound(t *testing.T) {
	body := `{"error":{"type":"index_not_found_exception","reason":"no such index [orders-2024]","index":"orders-2024"},"status":404}`
	got := Translate(NewStatusError(404, []byte(body)))

	var inf *IndexNotFoundError
	if !errors.As(got, &inf) {
		t.Fatalf("expected index not found, got %v", got)
	}
	if inf.Index != "orders-2024" {
		t.Errorf("expected orders-2024, got %q", inf.Index)
	}
	if !errors.Is(got, ErrIndexNotFound) {
		t.Error("expected errors.Is to match ErrIndexNotFound")
	}
}

func TestTranslate_IndexNotFoundPlainMessage(t *testing.T) {
	err := &StatusError{Status: 404, Body: "... index_not_found_exception ... no such index [orders-2024] ..."}
	var inf *IndexNotFoundError
	if !errors.As(Translate(err), &inf) || inf.Index != "orders-2024" {
		t.Fatalf("expected index orders-2024, got %v", Translate(err))
	}
}

func TestTranslate_ValidationMessage(t *testing.T) {
	body := `{"error":{"type":"action_request_validation_exception","reason":"Validation Failed: 1: id is missing;"},"status":400}`
	if got := Translate(NewStatusError(400, []byte(body))); !errors.Is(got, ErrDataIntegrityViolation) {
		t.Errorf("expected data integrity violation, got %v", got)
	}
}

func TestTranslate_ValidationError(t *testing.T) {
	err := &ValidationError{Errors: []string{"index is missing"}}
	if got := Translate(err); !errors.Is(got, ErrDataIntegrityViolation) {
		t.Errorf("expected data integrity violation, got %v", got)
	}
}

func TestTranslate_OtherStatus(t *testing.T) {
	got := Translate(NewStatusError(503, []byte("unavailable")))
	var ue *UncategorizedError
	if !errors.As(got, &ue) || ue.Status != 503 {
		t.Fatalf("expected uncategorized 503, got %v", got)
	}
}

func TestTranslate_IOFailure(t *testing.T) {
	cases := []error{
		fmt.Errorf("reading response: %w", io.ErrUnexpectedEOF),
		&net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
		fmt.Errorf("perform: %w", syscall.ECONNRESET),
	}
	for _, err := range cases {
		if got := Translate(err); !errors.Is(got, ErrResourceFailure) {
			t.Errorf("%v: expected resource failure, got %v", err, got)
		}
	}
}

func TestTranslate_NotTranslatable(t *testing.T) {
	err := errors.New("something else")
	if got := Translate(err); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := Translate(err); got != nil {
		t.Errorf("expected nil on second call, got %v", got)
	}
	if TranslateOrSelf(err) != err {
		t.Error("expected the original error back")
	}
	if Translate(nil) != nil {
		t.Error("expected nil for nil")
	}
}

func TestTranslate_AlreadyPortable(t *testing.T) {
	err := InvalidUsage("no id for %s", "x")
	if got := Translate(err); got != err {
		t.Errorf("expected the same error, got %v", got)
	}
}

func TestBulkFailureError(t *testing.T) {
	err := &BulkFailureError{Failures: map[string]string{"b": "mapper_parsing_exception", "a": "version conflict"}}
	if !errors.Is(err, ErrBulkFailure) {
		t.Error("expected errors.Is to match ErrBulkFailure")
	}
	if !strings.Contains(err.Error(), "a: version conflict; b: mapper_parsing_exception") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestNewStatusError_PlainTextErrorField(t *testing.T) {
	e := NewStatusError(400, []byte(`{"error":"Incorrect HTTP method","status":405}`))
	if e.Reason != "Incorrect HTTP method" {
		t.Errorf("unexpected reason %q", e.Reason)
	}
	if e.Status != 400 {
		t.Errorf("status must come from the response, got %d", e.Status)
	}
}
