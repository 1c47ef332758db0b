package bank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// localDateTimeLayout is an ISO-8601 date-time without a zone offset, as the
// bank's Java services emit for LocalDateTime. Such values are read as UTC.
const localDateTimeLayout = "2006-01-02T15:04:05.999999999"

// timestamp decodes RFC 3339 or zone-less ISO date-times.
type timestamp time.Time

func (t *timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		*t = timestamp(parsed)
		return nil
	}
	parsed, err := time.ParseInLocation(localDateTimeLayout, raw, time.UTC)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	*t = timestamp(parsed)
	return nil
}

// wholeNumber decodes integers sent as JSON numbers with a fractional part
// (50000.0) or as strings, truncating toward zero.
type wholeNumber int64

func (n *wholeNumber) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*n = wholeNumber(d.IntPart())
	return nil
}

// UnmarshalJSON accepts zone-less createdAt values.
func (a *Application) UnmarshalJSON(data []byte) error {
	type alias Application
	aux := struct {
		*alias
		CreatedAt timestamp `json:"createdAt"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.CreatedAt = time.Time(aux.CreatedAt)
	return nil
}

// UnmarshalJSON accepts zone-less createdAt values.
func (a *Account) UnmarshalJSON(data []byte) error {
	type alias Account
	aux := struct {
		*alias
		CreatedAt timestamp `json:"createdAt"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.CreatedAt = time.Time(aux.CreatedAt)
	return nil
}

// UnmarshalJSON accepts zone-less transactedAt values.
func (tx *Transaction) UnmarshalJSON(data []byte) error {
	type alias Transaction
	aux := struct {
		*alias
		TransactedAt timestamp `json:"transactedAt"`
	}{alias: (*alias)(tx)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	tx.TransactedAt = time.Time(aux.TransactedAt)
	return nil
}

// UnmarshalJSON accepts a fractional welcomeBonus.
func (p *RewardPolicy) UnmarshalJSON(data []byte) error {
	type alias RewardPolicy
	aux := struct {
		*alias
		WelcomeBonus wholeNumber `json:"welcomeBonus"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.WelcomeBonus = int64(aux.WelcomeBonus)
	return nil
}

// UnmarshalJSON accepts a fractional welcomeBonus.
func (in *CardProductInput) UnmarshalJSON(data []byte) error {
	type alias CardProductInput
	aux := struct {
		*alias
		WelcomeBonus wholeNumber `json:"welcomeBonus"`
	}{alias: (*alias)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	in.WelcomeBonus = int64(aux.WelcomeBonus)
	return nil
}
