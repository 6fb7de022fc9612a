package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go-ordersync/internal/config"

	"go.uber.org/zap"
)

// APIError covers CRM search/create/update failures
type APIError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("crm %s failed with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("crm %s failed: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

type CrmService interface {
	// UpsertContact resolves a contact by email: updates the first match if
	// one exists, creates a new record otherwise. Returns the CRM contact id.
	UpsertContact(ctx context.Context, contact Contact) (string, error)
	// CreateDeal creates a deal whose ContactName reference is already set
	// and returns the assigned CRM deal id
	CreateDeal(ctx context.Context, deal Deal) (string, error)
}

type CrmServiceImpl struct {
	apiBaseURL string
	tokens     TokenManager
	client     *http.Client
	logger     *zap.Logger
}

func NewCrmService(cfg *config.Config, tokens TokenManager, logger *zap.Logger) CrmService {
	return &CrmServiceImpl{
		apiBaseURL: cfg.ZohoApiBaseURL,
		tokens:     tokens,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (s *CrmServiceImpl) UpsertContact(ctx context.Context, contact Contact) (string, error) {
	searchURL := fmt.Sprintf("%s/Contacts/search?email=%s", s.apiBaseURL, url.QueryEscape(contact.Email))

	resp, err := s.doRequest(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// The CRM answers 204 (or 404 on some deployments) when nothing matches;
	// both fall through to create
	if resp.StatusCode == http.StatusOK {
		var search searchResponse
		if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
			return "", &APIError{Op: "contact search", Err: err}
		}

		if len(search.Data) > 0 {
			// First match wins; no merge logic
			existingID := search.Data[0].ID
			s.logger.Info("Contact exists, updating",
				zap.String("contact_id", existingID),
				zap.String("email", contact.Email))

			s.updateContact(ctx, existingID, contact)
			return existingID, nil
		}
	} else if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return "", &APIError{Op: "contact search", StatusCode: resp.StatusCode}
	}

	s.logger.Info("Creating new contact", zap.String("email", contact.Email))

	return s.createRecord(ctx, "Contacts", contact)
}

// updateContact pushes the full contact payload onto an existing record. A
// failed update is logged but does not invalidate the resolved id: the search
// match already identifies the contact the deal must link to.
func (s *CrmServiceImpl) updateContact(ctx context.Context, id string, contact Contact) {
	payload, err := json.Marshal(recordEnvelope{Data: []interface{}{contact}})
	if err != nil {
		s.logger.Warn("Contact update payload marshal failed",
			zap.String("contact_id", id), zap.Error(err))
		return
	}

	updateURL := fmt.Sprintf("%s/Contacts/%s", s.apiBaseURL, id)
	resp, err := s.doRequest(ctx, http.MethodPut, updateURL, bytes.NewReader(payload))
	if err != nil {
		s.logger.Warn("Contact update request failed",
			zap.String("contact_id", id), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("Contact update rejected by CRM",
			zap.String("contact_id", id),
			zap.Int("status", resp.StatusCode))
	}
}

func (s *CrmServiceImpl) CreateDeal(ctx context.Context, deal Deal) (string, error) {
	id, err := s.createRecord(ctx, "Deals", deal)
	if err != nil {
		return "", err
	}

	s.logger.Info("Deal created successfully", zap.String("deal_id", id))
	return id, nil
}

func (s *CrmServiceImpl) createRecord(ctx context.Context, module string, record interface{}) (string, error) {
	op := fmt.Sprintf("%s create", module)

	payload, err := json.Marshal(recordEnvelope{Data: []interface{}{record}})
	if err != nil {
		return "", &APIError{Op: op, Err: err}
	}

	createURL := fmt.Sprintf("%s/%s", s.apiBaseURL, module)
	resp, err := s.doRequest(ctx, http.MethodPost, createURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", &APIError{Op: op, StatusCode: resp.StatusCode}
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", &APIError{Op: op, Err: err}
	}

	if len(created.Data) == 0 || created.Data[0].Details.ID == "" {
		return "", &APIError{Op: op, Err: fmt.Errorf("response missing record id")}
	}

	return created.Data[0].Details.ID, nil
}

// doRequest attaches a fresh-enough access token and issues the call
func (s *CrmServiceImpl) doRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Response, error) {
	token, err := s.tokens.GetValidToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, &APIError{Op: "build request", Err: err}
	}

	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &APIError{Op: "request", Err: err}
	}

	return resp, nil
}
