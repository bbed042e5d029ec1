package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// HTTPStore implements Store against a snapshot slot HTTP API. All requests
// carry the session token; a missing token is rejected locally so the caller
// sees the same ErrNotAuthenticated it would get from the server.
type HTTPStore struct {
	client *resty.Client
	token  string
}

// NewHTTPStore creates an HTTPStore for the given endpoint and session token.
func NewHTTPStore(endpoint, sessionToken string) *HTTPStore {
	client := resty.New().
		SetBaseURL(endpoint).
		SetAuthToken(sessionToken)
	return &HTTPStore{client: client, token: sessionToken}
}

type slotResponse struct {
	Handle   Handle `json:"handle"`
	Conflict *struct {
		ID        string `json:"id"`
		Base      Handle `json:"base"`
		Competing Handle `json:"competing"`
	} `json:"conflict,omitempty"`
}

func (s *HTTPStore) Open(ctx context.Context, slot string, createIfMissing bool) (*Handle, error) {
	if s.token == "" {
		return nil, ErrNotAuthenticated
	}

	res, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("create", fmt.Sprintf("%t", createIfMissing)).
		Get(fmt.Sprintf("/v1/slots/%s", slot))
	if err != nil {
		return nil, fmt.Errorf("client.R().Get(slot %s) > %w", slot, err)
	}
	if err := classifyStatus(res); err != nil {
		return nil, err
	}

	var parsed slotResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(slot response) > %w", err)
	}
	if parsed.Conflict != nil {
		return nil, &ConflictError{
			ConflictID: parsed.Conflict.ID,
			Base:       parsed.Conflict.Base,
			Competing:  parsed.Conflict.Competing,
		}
	}
	return &parsed.Handle, nil
}

func (s *HTTPStore) ReadBytes(ctx context.Context, h *Handle) ([]byte, error) {
	if s.token == "" {
		return nil, ErrNotAuthenticated
	}

	res, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("version", h.Version).
		Get(fmt.Sprintf("/v1/slots/%s/bytes", h.Slot))
	if err != nil {
		return nil, fmt.Errorf("client.R().Get(slot %s bytes) > %w", h.Slot, err)
	}
	if res.StatusCode() == http.StatusNoContent {
		return nil, nil
	}
	if err := classifyStatus(res); err != nil {
		return nil, err
	}
	return res.Body(), nil
}

func (s *HTTPStore) WriteBytes(ctx context.Context, h *Handle, data []byte) (*Handle, error) {
	if s.token == "" {
		return nil, ErrNotAuthenticated
	}

	res, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetHeader("If-Match", h.Version).
		SetBody(data).
		Put(fmt.Sprintf("/v1/slots/%s/bytes", h.Slot))
	if err != nil {
		return nil, fmt.Errorf("client.R().Put(slot %s bytes) > %w", h.Slot, err)
	}
	if res.StatusCode() == http.StatusConflict {
		var parsed slotResponse
		if err := json.Unmarshal(res.Body(), &parsed); err != nil || parsed.Conflict == nil {
			return nil, fmt.Errorf("slot %s conflict response unreadable: %s", h.Slot, res.Body())
		}
		return nil, &ConflictError{
			ConflictID: parsed.Conflict.ID,
			Base:       parsed.Conflict.Base,
			Competing:  parsed.Conflict.Competing,
		}
	}
	if err := classifyStatus(res); err != nil {
		return nil, err
	}

	var parsed slotResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(commit response) > %w", err)
	}
	return &parsed.Handle, nil
}

func (s *HTTPStore) ResolveConflict(ctx context.Context, conflictID string, chosen *Handle) (*Handle, error) {
	if s.token == "" {
		return nil, ErrNotAuthenticated
	}

	res, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"chosen_version": chosen.Version, "slot": chosen.Slot}).
		Post(fmt.Sprintf("/v1/conflicts/%s/resolve", conflictID))
	if err != nil {
		return nil, fmt.Errorf("client.R().Post(resolve %s) > %w", conflictID, err)
	}
	if err := classifyStatus(res); err != nil {
		return nil, err
	}

	var parsed slotResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(resolve response) > %w", err)
	}
	return &parsed.Handle, nil
}

// classifyStatus maps HTTP status codes onto the error taxonomy: auth and
// quota failures are terminal sentinels, everything else unexpected surfaces
// as a plain error the caller may treat as transient.
func classifyStatus(res *resty.Response) error {
	switch res.StatusCode() {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrNotAuthenticated
	case http.StatusNotFound:
		return ErrSlotNotFound
	case http.StatusInsufficientStorage, http.StatusTooManyRequests:
		return ErrQuotaExceeded
	default:
		return fmt.Errorf("remote store returned status %d: %s", res.StatusCode(), res.Body())
	}
}
