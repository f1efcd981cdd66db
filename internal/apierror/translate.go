package apierror

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"syscall"
)

var noSuchIndex = regexp.MustCompile(`no such index \[([^\]]+)\]`)

// Translate maps err into the portable taxonomy. It returns nil when err
// does not belong to any category; callers then surface err unchanged.
// Errors that are already portable are returned as they are.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if isPortable(err) {
		return err
	}

	var se *StatusError
	if errors.As(err, &se) {
		msg := se.message()
		switch {
		case IsSeqNoConflict(se.Status, msg):
			return &OptimisticLockingError{Cause: err}
		case strings.Contains(msg, "index_not_found_exception"):
			index := se.Index
			if m := noSuchIndex.FindStringSubmatch(msg); m != nil {
				index = m[1]
			}
			return &IndexNotFoundError{Index: index, Cause: err}
		case isValidationMessage(msg):
			return &DataIntegrityError{Cause: err}
		default:
			return &UncategorizedError{Status: se.Status, Cause: err}
		}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return &DataIntegrityError{Cause: err}
	}
	if isIOFailure(err) {
		return &ResourceFailureError{Cause: err}
	}
	return nil
}

// TranslateOrSelf returns Translate(err), or err when it is not
// translatable.
func TranslateOrSelf(err error) error {
	if t := Translate(err); t != nil {
		return t
	}
	return err
}

// IsSeqNoConflict reports whether a response is a failed seq_no/primary_term
// conditional write.
func IsSeqNoConflict(status int, msg string) bool {
	return status == http.StatusConflict &&
		strings.Contains(msg, "version_conflict_engine_exception") &&
		strings.Contains(msg, "required seqNo")
}

func isValidationMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "validation exception") || strings.Contains(lower, "validation_exception")
}

func isIOFailure(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
