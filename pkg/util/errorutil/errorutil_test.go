package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainErrorPassesThrough(t *testing.T) {
	err := NewForbidden("nope")
	converted := ToDomainError(err)
	if converted.Code != "FORBIDDEN" || converted.HTTPStatus != http.StatusForbidden {
		t.Fatalf("converted = %+v", converted)
	}
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	wrapped := fmt.Errorf("query failed: %w", pgx.ErrNoRows)
	converted := ToDomainError(wrapped)
	if converted.Code != "NOT_FOUND" || converted.HTTPStatus != http.StatusNotFound {
		t.Fatalf("converted = %+v", converted)
	}
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	converted := ToDomainError(errors.New("boom"))
	if converted.Code != "INTERNAL_ERROR" || converted.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("converted = %+v", converted)
	}
	if !errors.Is(converted, converted.Err) {
		t.Fatal("cause not preserved")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewAlreadyRated("c-1"))
	if !IsCode(err, "ALREADY_RATED") {
		t.Fatal("wrapped code not detected")
	}
	if IsCode(errors.New("plain"), "ALREADY_RATED") {
		t.Fatal("plain error matched")
	}
	if IsCode(nil, "ALREADY_RATED") {
		t.Fatal("nil matched")
	}
}
