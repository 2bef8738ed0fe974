package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"trippin/model"
)

// maxQRImage bounds the downloaded QR image.
const maxQRImage = 1 << 20

// QRIssuer "issues" an eSIM by rendering an LPA activation string into a
// QR image through a public QR code API.
type QRIssuer struct {
	baseURL    string
	smdpHost   string
	httpClient *http.Client
}

func NewQRIssuer(baseURL string, httpClient *http.Client) *QRIssuer {
	if baseURL == "" {
		baseURL = "https://api.qrserver.com/v1/create-qr-code/"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &QRIssuer{
		baseURL:    baseURL,
		smdpHost:   "smdp.trippin.io",
		httpClient: httpClient,
	}
}

func activationPayload(host string, planID int) string {
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:20]
	return fmt.Sprintf("LPA:1$%s$TRP%d-%s", host, planID, code)
}

// Issue returns the QR code for a fresh activation of planID.
func (q *QRIssuer) Issue(ctx context.Context, planID int) (*model.QRCode, error) {
	payload := activationPayload(q.smdpHost, planID)

	query := url.Values{}
	query.Set("size", "300x300")
	query.Set("format", "png")
	query.Set("data", payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, &model.AdapterError{Adapter: "esim", Message: "Failed to generate QR code. Please try again.", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.AdapterError{
			Adapter: "esim",
			Message: "Failed to generate QR code. Please try again.",
			Err:     fmt.Errorf("status %d", resp.StatusCode),
		}
	}
	img, err := io.ReadAll(io.LimitReader(resp.Body, maxQRImage+1))
	if err == nil && len(img) > maxQRImage {
		err = fmt.Errorf("image larger than %d bytes", maxQRImage)
	}
	if err != nil {
		return nil, &model.AdapterError{Adapter: "esim", Message: "Failed to download QR code. Please try again.", Err: err}
	}

	ct := resp.Header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	if ct == "" {
		ct = http.DetectContentType(img)
	}
	return &model.QRCode{PlanID: planID, Payload: payload, ContentType: ct, Image: img}, nil
}
