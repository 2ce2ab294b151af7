// Package soap implements metadata.Service against the Metadata API SOAP
// endpoint <instance>/services/Soap/m/<apiVersion>.
//
// The caller supplies an already authenticated session id; the client only
// adds it to the SessionHeader of every envelope.
package soap

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/minios-linux/objtrans/batch"
	"github.com/minios-linux/objtrans/metadata"
)

// Namespaces used by the envelope.
const (
	nsEnvelope = "http://schemas.xmlsoap.org/soap/envelope/"
	nsMetadata = "http://soap.sforce.com/2006/04/metadata"
	nsXSI      = "http://www.w3.org/2001/XMLSchema-instance"
)

// Config configures a Client.
type Config struct {
	// InstanceURL is the org's base URL, e.g. https://acme.my.salesforce.com.
	InstanceURL string
	// SessionID is the session token sent in the SessionHeader.
	SessionID string
	// APIVersion selects the endpoint (default metadata.DefaultAPIVersion).
	APIVersion string
	// Timeout bounds a single HTTP request (0 = no timeout).
	Timeout time.Duration
	// Retries is the number of retries for transport errors and 429/503
	// responses. SOAP faults are never retried.
	Retries int
	// Proxy is an optional HTTP proxy URL.
	Proxy string
	// Verbose enables request tracing through the log package.
	Verbose bool
}

// Client talks to the Metadata API.
type Client struct {
	cfg      Config
	endpoint string
	http     *resty.Client
}

var _ metadata.Service = (*Client)(nil)

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	if cfg.InstanceURL == "" {
		return nil, errors.New("soap: instance URL is required")
	}
	if cfg.SessionID == "" {
		return nil, errors.New("soap: session id is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = metadata.DefaultAPIVersion
	}

	h := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "text/xml; charset=UTF-8").
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(8 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() == http.StatusServiceUnavailable
		})
	if cfg.Proxy != "" {
		h.SetProxy(cfg.Proxy)
	}

	return &Client{
		cfg:      cfg,
		endpoint: strings.TrimRight(cfg.InstanceURL, "/") + "/services/Soap/m/" + cfg.APIVersion,
		http:     h,
	}, nil
}

// Endpoint returns the SOAP endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint }

// call posts body wrapped in an envelope and decodes the response body
// element into out. A SOAP fault is returned as *metadata.ServiceError.
func (c *Client) call(ctx context.Context, action string, body any, out any) error {
	payload, err := c.envelope(body)
	if err != nil {
		return fmt.Errorf("%s: encoding request: %w", action, err)
	}

	if c.cfg.Verbose {
		log.Printf("[DEBUG] %s: POST %s (%d bytes)", action, c.endpoint, len(payload))
	}
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("SOAPAction", `""`).
		SetBody(payload).
		Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", action, err)
	}
	if c.cfg.Verbose {
		log.Printf("[DEBUG] %s: %s in %v", action, resp.Status(), time.Since(start).Round(time.Millisecond))
	}

	env := responseEnvelope{}
	if err := xml.Unmarshal(resp.Body(), &env); err != nil {
		if resp.IsError() {
			return fmt.Errorf("%s: %s; body: %s", action, resp.Status(), truncate(resp.String(), 512))
		}
		return fmt.Errorf("%s: decoding response: %w", action, err)
	}
	if env.Body.Fault != nil {
		return env.Body.Fault.serviceError()
	}
	if resp.IsError() {
		return fmt.Errorf("%s: %s", action, resp.Status())
	}
	if err := xml.Unmarshal(env.Body.Content, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", action, err)
	}
	return nil
}

func (c *Client) envelope(body any) ([]byte, error) {
	inner, err := xml.Marshal(body)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	fmt.Fprintf(&buf, `<soapenv:Envelope xmlns:soapenv=%q xmlns=%q xmlns:xsi=%q>`, nsEnvelope, nsMetadata, nsXSI)
	buf.WriteString(`<soapenv:Header><SessionHeader><sessionId>`)
	if err := xml.EscapeText(&buf, []byte(c.cfg.SessionID)); err != nil {
		return nil, err
	}
	buf.WriteString(`</sessionId></SessionHeader></soapenv:Header><soapenv:Body>`)
	buf.Write(inner)
	buf.WriteString(`</soapenv:Body></soapenv:Envelope>`)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// List implements metadata.Service.
func (c *Client) List(ctx context.Context, queries []metadata.ListQuery, apiVersion string) (batch.Result[metadata.FileProperties], error) {
	req := listRequest{AsOfVersion: apiVersion}
	for _, q := range queries {
		req.Queries = append(req.Queries, listQuery{Folder: q.Folder, Type: q.Type})
	}
	var resp listResponse
	if err := c.call(ctx, "listMetadata", req, &resp); err != nil {
		return batch.Result[metadata.FileProperties]{}, err
	}
	out := make([]metadata.FileProperties, 0, len(resp.Result))
	for _, p := range resp.Result {
		out = append(out, metadata.FileProperties{FullName: p.FullName, Type: p.Type, FileName: p.FileName})
	}
	return batch.Mirror(len(out), out), nil
}

// ReadCustomObjects implements metadata.Service.
func (c *Client) ReadCustomObjects(ctx context.Context, names []string) (batch.Result[metadata.ObjectDefinition], error) {
	var resp readResponse[objectXML]
	if err := c.call(ctx, "readMetadata", readRequest{Type: metadata.TypeCustomObject, FullNames: names}, &resp); err != nil {
		return batch.Result[metadata.ObjectDefinition]{}, err
	}
	out := make([]metadata.ObjectDefinition, 0, len(resp.Records))
	for _, r := range resp.Records {
		out = append(out, r.definition())
	}
	return batch.Mirror(len(names), out), nil
}

// ReadCustomFields implements metadata.Service.
func (c *Client) ReadCustomFields(ctx context.Context, names []string) (batch.Result[metadata.FieldRecord], error) {
	var resp readResponse[fieldXML]
	if err := c.call(ctx, "readMetadata", readRequest{Type: metadata.TypeCustomField, FullNames: names}, &resp); err != nil {
		return batch.Result[metadata.FieldRecord]{}, err
	}
	out := make([]metadata.FieldRecord, 0, len(resp.Records))
	for _, r := range resp.Records {
		out = append(out, r.FieldRecord)
	}
	return batch.Mirror(len(names), out), nil
}

// ReadObjectTranslations implements metadata.Service.
func (c *Client) ReadObjectTranslations(ctx context.Context, names []string) (batch.Result[metadata.ObjectTranslation], error) {
	var resp readResponse[translationXML]
	if err := c.call(ctx, "readMetadata", readRequest{Type: metadata.TypeCustomObjectTranslation, FullNames: names}, &resp); err != nil {
		return batch.Result[metadata.ObjectTranslation]{}, err
	}
	out := make([]metadata.ObjectTranslation, 0, len(resp.Records))
	for _, r := range resp.Records {
		out = append(out, r.translation())
	}
	return batch.Mirror(len(names), out), nil
}

// UpdateCustomFields implements metadata.Service.
func (c *Client) UpdateCustomFields(ctx context.Context, records []metadata.FieldRecord) (batch.Result[metadata.SaveResult], error) {
	req := updateRequest{}
	for _, r := range records {
		req.Metadata = append(req.Metadata, fieldXML{FieldRecord: r})
	}
	var resp updateResponse
	if err := c.call(ctx, "updateMetadata", req, &resp); err != nil {
		return batch.Result[metadata.SaveResult]{}, err
	}
	out := make([]metadata.SaveResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, r.saveResult())
	}
	return batch.Mirror(len(records), out), nil
}
