// Package apierror classifies the backend's error envelopes into a single
// tagged variant and reduces any failure value to one user-facing message.
//
// The backend emits several ad hoc shapes: a legacy `detail` field (string,
// validation list, or reason object), a newer `error` field, a bare
// `message`, and `meta.details`. Decode tags the shape once at the boundary
// so callers switch on Kind instead of duck-typing nested optional fields.
package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
)

// Kind identifies which envelope shape the backend used.
type Kind int

const (
	// KindUnknown is an unrecognized payload shape.
	KindUnknown Kind = iota
	// KindErrorField is the current envelope: {"error": "..."}.
	KindErrorField
	// KindDetailString is the legacy envelope: {"detail": "..."}.
	KindDetailString
	// KindDetailList is the validation envelope: {"detail": [{"msg": ...}]}.
	KindDetailList
	// KindReason is the legacy object envelope: {"detail": {"reason": "..."}}.
	KindReason
	// KindMessage is a bare {"message": "..."} payload.
	KindMessage
	// KindMetaDetails is the {"meta": {"details": [...]}} payload.
	KindMetaDetails
)

const (
	// FallbackMessage is returned whenever no message can be extracted.
	FallbackMessage = "An unknown error occurred."
	// TransientMessage replaces raw transport failures (timeouts,
	// unreachable host) which are never shown to users verbatim.
	TransientMessage = "Something went wrong. Please try again."
)

// Envelope is a decoded backend error. Message is always non-empty.
type Envelope struct {
	Kind        Kind
	Status      int
	Message     string
	FieldErrors map[string][]string
}

func (e *Envelope) Error() string {
	return e.Message
}

// IsAuthFailure reports whether the backend rejected the credential itself.
func (e *Envelope) IsAuthFailure() bool {
	return e.Status == 401 || e.Status == 403
}

// Fields returns per-field validation messages, nil unless KindDetailList.
// Validation envelopes pass through field-by-field without loss.
func (e *Envelope) Fields() map[string][]string {
	return e.FieldErrors
}

type detailItem struct {
	Loc     []any  `json:"loc"`
	Msg     string `json:"msg"`
	Message string `json:"message"`
}

type probe struct {
	Error   string          `json:"error"`
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Meta    *struct {
		Details []json.RawMessage `json:"details"`
	} `json:"meta"`
}

// Decode classifies a raw backend error body. It never fails: bodies that
// match no known shape come back as KindUnknown with the fallback message.
func Decode(status int, body []byte) *Envelope {
	e := &Envelope{Kind: KindUnknown, Status: status, Message: FallbackMessage}

	var p probe
	if err := json.Unmarshal(body, &p); err != nil {
		return e
	}

	if p.Error != "" {
		e.Kind = KindErrorField
		e.Message = p.Error
		return e
	}

	if len(p.Detail) > 0 {
		if classifyDetail(p.Detail, e) {
			return e
		}
	}

	if p.Message != "" {
		e.Kind = KindMessage
		e.Message = p.Message
		return e
	}

	if p.Meta != nil && len(p.Meta.Details) > 0 {
		if msg := metaDetailMessage(p.Meta.Details[0]); msg != "" {
			e.Kind = KindMetaDetails
			e.Message = msg
			return e
		}
	}

	return e
}

func classifyDetail(raw json.RawMessage, e *Envelope) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		e.Kind = KindDetailString
		e.Message = s
		return true
	}

	var items []detailItem
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		first := items[0].Msg
		if first == "" {
			return false
		}
		e.Kind = KindDetailList
		e.Message = first
		e.FieldErrors = fieldErrors(items)
		return true
	}

	var obj struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Reason != "" {
		e.Kind = KindReason
		e.Message = obj.Reason
		return true
	}

	return false
}

// fieldErrors keys each validation message by the last element of its
// location path, the field name as the form layer knows it.
func fieldErrors(items []detailItem) map[string][]string {
	fields := make(map[string][]string)
	for _, item := range items {
		if item.Msg == "" {
			continue
		}
		name := ""
		if len(item.Loc) > 0 {
			if s, ok := item.Loc[len(item.Loc)-1].(string); ok {
				name = s
			}
		}
		fields[name] = append(fields[name], item.Msg)
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func metaDetailMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var item detailItem
	if err := json.Unmarshal(raw, &item); err == nil {
		if item.Msg != "" {
			return item.Msg
		}
		return item.Message
	}
	return ""
}

// Normalize reduces an arbitrary failure value to one human-readable,
// non-empty string. It is pure and total: any input maps to some message,
// unrecognized ones to FallbackMessage and transport failures to
// TransientMessage.
func Normalize(v any) string {
	switch val := v.(type) {
	case nil:
		return FallbackMessage
	case string:
		if val != "" {
			return val
		}
		return FallbackMessage
	case *Envelope:
		if val == nil || val.Message == "" {
			return FallbackMessage
		}
		return val.Message
	case error:
		return normalizeError(val)
	case json.RawMessage:
		return Decode(0, val).Message
	case []byte:
		return Decode(0, val).Message
	default:
		body, err := json.Marshal(val)
		if err != nil {
			return FallbackMessage
		}
		return Decode(0, body).Message
	}
}

func normalizeError(err error) string {
	var env *Envelope
	if errors.As(err, &env) {
		return Normalize(env)
	}
	if isTransport(err) {
		return TransientMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackMessage
}

func isTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
