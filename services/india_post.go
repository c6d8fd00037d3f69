package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"snapfix-server/models"
)

// ErrPincodeNotFound is returned by a PostalDirectory when the authority has
// no usable record for the pincode.
var ErrPincodeNotFound = errors.New("pincode not found")

// PostalDirectory is the external pincode authority.
type PostalDirectory interface {
	Lookup(ctx context.Context, pincode string) (*models.PincodeData, error)
}

// IndiaPostClient queries the public India Post pincode API.
type IndiaPostClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewIndiaPostClient(baseURL string, timeout time.Duration) *IndiaPostClient {
	return &IndiaPostClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type indiaPostOffice struct {
	District string `json:"District"`
	State    string `json:"State"`
}

type indiaPostResponse struct {
	Status     string            `json:"Status"`
	PostOffice []indiaPostOffice `json:"PostOffice"`
}

// Lookup returns ErrPincodeNotFound for any response that is not a success with
// at least one post office; transport failures and non-2xx statuses are returned as-is.
func (c *IndiaPostClient) Lookup(ctx context.Context, pincode string) (*models.PincodeData, error) {
	url := fmt.Sprintf("%s/pincode/%s", c.baseURL, pincode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build india post request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("india post request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("india post returned status %d", resp.StatusCode)
	}

	var body []indiaPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, ErrPincodeNotFound
	}
	if len(body) == 0 || body[0].Status != "Success" || len(body[0].PostOffice) == 0 {
		return nil, ErrPincodeNotFound
	}

	office := body[0].PostOffice[0]
	return &models.PincodeData{
		Pincode: pincode,
		City:    strings.TrimSpace(office.District),
		State:   strings.TrimSpace(office.State),
		Country: "India",
	}, nil
}
