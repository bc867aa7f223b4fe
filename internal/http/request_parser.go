package http

// Request decoding: JSON bodies, path and query parameters, and the check
// fields typed by users.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"imprimecheque/internal/core"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

var errEmptyBody = errors.New("request body is empty")

// decodeJSON reads exactly one JSON value into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	v := r.PathValue(name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return id, nil
}

// queryID parses an optional non-negative integer query parameter; absent
// means zero.
func queryID(q url.Values, name string) (int64, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return id, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(q url.Values, name string) (bool, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", name, v)
	}
	return b, nil
}

// FieldsRequest holds the check fields as typed by the user. The amount is
// a string so "1 234,50" survives JSON.
type FieldsRequest struct {
	City   string `json:"city"`
	Date   string `json:"date"`
	Payee  string `json:"payee"`
	Amount string `json:"amount"`
}

// Values parses the request into domain values. Dates accept yyyy-mm-dd,
// dd/mm/yyyy and dd-mm-yyyy; amounts may not carry more than two decimals.
func (f FieldsRequest) Values() (core.FieldValues, error) {
	date, err := core.ParseFlexibleDate(f.Date)
	if err != nil {
		return core.FieldValues{}, err
	}
	cents, err := core.ParseCents(f.Amount)
	if err != nil {
		return core.FieldValues{}, fmt.Errorf("%w: %q", err, f.Amount)
	}
	return core.FieldValues{
		City:   sanitizeInput(f.City),
		Date:   date,
		Payee:  sanitizeInput(f.Payee),
		Amount: core.Money{Cents: cents},
	}, nil
}

type issueRequest struct {
	CheckbookID int64  `json:"checkbookId"`
	Reference   string `json:"reference"`
	BankID      int64  `json:"bankId,omitempty"`
	UserID      int64  `json:"userId,omitempty"`
	FieldsRequest
}

type renderRequest struct {
	BankID int64 `json:"bankId"`
	UserID int64 `json:"userId,omitempty"`
	FieldsRequest
}

type spellRequest struct {
	Amount string `json:"amount"`
}

type calibrationRequest struct {
	UserID    int64            `json:"userId"`
	BankID    int64            `json:"bankId"`
	Positions core.FieldLayout `json:"positions"`
}
