package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"budgetpal/internal/core"
	"budgetpal/internal/storage"
)

var (
	errImmutableField = errors.New("field cannot change after creation")
	errMalformedBody  = errors.New("malformed request body")
	errInvalidID      = errors.New("invalid payment id")
)

// paymentRequest is the body accepted by create and update. Amount may be
// sent as a JSON number or string; frequency as a name, a short code, or both
// when they agree.
type paymentRequest struct {
	Name          string      `json:"name"`
	DayOfMonth    int         `json:"day_of_month"`
	Amount        json.Number `json:"amount"`
	Frequency     string      `json:"frequency"`
	FrequencyCode string      `json:"frequency_code"`
	Category      string      `json:"category"`
	Type          string      `json:"type"`
}

func decodePaymentRequest(w http.ResponseWriter, r *http.Request) (paymentRequest, error) {
	var req paymentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return paymentRequest{}, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return paymentRequest{}, fmt.Errorf("%w: trailing data", errMalformedBody)
	}
	req.Name = sanitizeInput(req.Name)
	return req, nil
}

func (req paymentRequest) newRecord() (storage.NewPaymentRecord, error) {
	typ, err := core.ParsePaymentType(req.Type)
	if err != nil {
		return storage.NewPaymentRecord{}, err
	}
	upd, err := req.update(core.Monthly, core.Fixed)
	if err != nil {
		return storage.NewPaymentRecord{}, err
	}
	return storage.NewPaymentRecord{
		Name:       upd.Name,
		DayOfMonth: req.DayOfMonth,
		Amount:     upd.Amount,
		Frequency:  upd.Frequency,
		Category:   upd.Category,
		Type:       typ,
	}, nil
}

// update builds the mutable fields. Frequency and category fall back to
// freq and cat when the request omits them.
func (req paymentRequest) update(freq core.Frequency, cat core.Category) (storage.PaymentUpdate, error) {
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		return storage.PaymentUpdate{}, err
	}
	if freq, err = req.frequency(freq); err != nil {
		return storage.PaymentUpdate{}, err
	}
	if strings.TrimSpace(req.Category) != "" {
		if cat, err = core.ParseCategory(req.Category); err != nil {
			return storage.PaymentUpdate{}, err
		}
	}
	return storage.PaymentUpdate{Name: req.Name, Amount: amount, Frequency: freq, Category: cat}, nil
}

// frequency returns def when neither field is set.
func (req paymentRequest) frequency(def core.Frequency) (core.Frequency, error) {
	name := strings.TrimSpace(req.Frequency)
	code := strings.TrimSpace(req.FrequencyCode)
	switch {
	case name == "" && code == "":
		return def, nil
	case code == "":
		return core.ParseFrequency(name, core.FrequencyName)
	case name == "":
		return core.ParseFrequency(code, core.FrequencyCode)
	}
	byName, err := core.ParseFrequency(name, core.FrequencyName)
	if err != nil {
		return 0, err
	}
	byCode, err := core.ParseFrequency(code, core.FrequencyCode)
	if err != nil {
		return 0, err
	}
	if byName != byCode {
		return 0, fmt.Errorf("%w: frequency %q does not match code %q", core.ErrUnrecognizedFrequency, name, code)
	}
	return byName, nil
}

// checkImmutable rejects attempts to change day of month or type on update.
// Omitted fields are fine.
func (req paymentRequest) checkImmutable(rec storage.PaymentRecord) error {
	if req.DayOfMonth != 0 && req.DayOfMonth != rec.DayOfMonth {
		return fmt.Errorf("%w: day_of_month", errImmutableField)
	}
	if strings.TrimSpace(req.Type) != "" {
		typ, err := core.ParsePaymentType(req.Type)
		if err != nil {
			return err
		}
		if typ != rec.Type {
			return fmt.Errorf("%w: type", errImmutableField)
		}
	}
	return nil
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errInvalidID
	}
	return id, nil
}

// sanitizeInput drops control characters other than tab and newlines and
// trims surrounding space.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
