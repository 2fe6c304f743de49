package jiofi

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

const statusPath = "/st_dev.w.xml"

// FetchStatus performs a single GET of the status document and decodes it.
// It returns a *NetworkError if the device cannot be reached in time.
func (c *Client) FetchStatus(ctx context.Context) (StatusSnapshot, error) {
	hc := newHTTPClient(c.statusTimeout, c.statusTimeout, nil)

	resp, err := c.send(ctx, hc, http.MethodGet, statusPath, nil, "")
	if err != nil {
		return NotAvailableSnapshot(), err
	}

	s := DecodeDocument(resp.Body)

	logrus.WithFields(logrus.Fields{
		"percentage":  s.PercentageRaw,
		"chargeState": s.ChargeState.String(),
		"statusCode":  resp.StatusCode,
	}).Debug("fetched device status")

	return s, nil
}

// Status is FetchStatus for display code: failures are logged and replaced by
// the N/A snapshot, so the caller has a single path.
func (c *Client) Status(ctx context.Context) StatusSnapshot {
	s, err := c.FetchStatus(ctx)
	if err != nil {
		logrus.WithError(err).Warn("failed to fetch device status")
		return NotAvailableSnapshot()
	}
	return s
}
