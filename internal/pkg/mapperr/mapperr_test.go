package mapperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClientInitErrorUnwraps(t *testing.T) {
	cause := errors.New("missing url")
	err := fmt.Errorf("building clients: %w", &ClientInitError{Resource: "uniprot-api", Err: cause})

	var initErr *ClientInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("errors.As failed on %v", err)
	}
	if initErr.Resource != "uniprot-api" {
		t.Fatalf("resource lost: %q", initErr.Resource)
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause not reachable")
	}
}

func TestClientExecutionErrorCarriesIdentifier(t *testing.T) {
	cause := errors.New("timeout")
	err := &ClientExecutionError{Resource: "uniprot-api", Identifier: "P12345", Err: cause}

	msg := err.Error()
	if !strings.Contains(msg, "uniprot-api") || !strings.Contains(msg, "P12345") {
		t.Fatalf("message missing context: %q", msg)
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause not reachable")
	}
}
