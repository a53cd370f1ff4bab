package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// TimestampLayout is the YYYYMMDDHHmmss layout Daraja signs and reports.
const TimestampLayout = "20060102150405"

// processingCode is returned by the query endpoint while the customer has not
// yet answered the prompt.
const processingCode = "500.001.1001"

var nairobi = time.FixedZone("EAT", 3*60*60)

// Password signs an STK request: base64(shortcode + passkey + timestamp).
func Password(shortCode, passkey string, t time.Time) (password, timestamp string) {
	timestamp = t.In(nairobi).Format(TimestampLayout)
	password = base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
	return password, timestamp
}

// Daraja is the live gateway. Tokens are not cached, so every push or query
// costs two round trips.
type Daraja struct {
	cfg     Config
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func NewDaraja(cfg Config, client *http.Client) *Daraja {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Daraja{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.baseURL(), "/"),
		client:  client,
		now:     time.Now,
	}
}

func (d *Daraja) Mode() Mode { return ModeDaraja }

// AccessToken exchanges the consumer key and secret for a bearer token.
func (d *Daraja) AccessToken(ctx context.Context) (string, error) {
	if !present(d.cfg.ConsumerKey) || !present(d.cfg.ConsumerSecret) {
		return "", fmt.Errorf("%w: credentials not configured", ErrAuth)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		d.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	req.SetBasicAuth(d.cfg.ConsumerKey, d.cfg.ConsumerSecret)
	req.Header.Set("Content-Type", "application/json")

	status, body, err := d.do(req)
	if err != nil {
		return "", &Error{Op: "access token", Err: fmt.Errorf("%w: %v", ErrAuth, err)}
	}
	if status < 200 || status > 299 {
		return "", &Error{Op: "access token", StatusCode: status, Body: body, Err: ErrAuth}
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		return "", &Error{Op: "access token", StatusCode: status, Body: body,
			Err: fmt.Errorf("%w: no access token received", ErrAuth)}
	}
	return token, nil
}

// Push starts an STK push to the customer's phone.
func (d *Daraja) Push(ctx context.Context, r PushRequest) (*PushResult, error) {
	token, err := d.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	password, timestamp := Password(d.cfg.BusinessShortCode, d.cfg.Passkey, d.now())
	phone := FormatPhone(r.Phone)

	payload := map[string]interface{}{
		"BusinessShortCode": d.cfg.BusinessShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            r.Amount,
		"PartyA":            phone,
		"PartyB":            d.cfg.BusinessShortCode,
		"PhoneNumber":       phone,
		"CallBackURL":       d.cfg.CallbackURL,
		"AccountReference":  r.Reference,
		"TransactionDesc":   r.Description,
	}
	status, body, err := d.post(ctx, "/mpesa/stkpush/v1/processrequest", token, payload)
	if err != nil {
		return nil, &Error{Op: "stk push", Err: err}
	}
	if status < 200 || status > 299 || str(body["ResponseCode"]) != "0" {
		log.Printf("[mpesa] stk push rejected: status=%d body=%v", status, body)
		return nil, &Error{Op: "stk push", StatusCode: status, Body: body}
	}
	return &PushResult{
		CheckoutRequestID:   str(body["CheckoutRequestID"]),
		MerchantRequestID:   str(body["MerchantRequestID"]),
		TransactionID:       str(body["CheckoutRequestID"]),
		ResponseDescription: str(body["ResponseDescription"]),
		CustomerMessage:     str(body["CustomerMessage"]),
	}, nil
}

// Query polls the status of an earlier push.
func (d *Daraja) Query(ctx context.Context, checkoutRequestID string) (*QueryResult, error) {
	token, err := d.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	password, timestamp := Password(d.cfg.BusinessShortCode, d.cfg.Passkey, d.now())
	payload := map[string]interface{}{
		"BusinessShortCode": d.cfg.BusinessShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}
	status, body, err := d.post(ctx, "/mpesa/stkpushquery/v1/query", token, payload)
	if err != nil {
		return nil, &Error{Op: "stk query", Err: err}
	}
	if str(body["errorCode"]) == processingCode {
		return &QueryResult{Outcome: OutcomePending, ResultDesc: str(body["errorMessage"])}, nil
	}
	if status < 200 || status > 299 {
		return nil, &Error{Op: "stk query", StatusCode: status, Body: body}
	}
	code := str(body["ResultCode"])
	res := &QueryResult{ResultCode: code, ResultDesc: str(body["ResultDesc"])}
	var n int
	if _, err := fmt.Sscan(code, &n); err != nil {
		res.Outcome = OutcomePending
		return res, nil
	}
	res.Outcome = OutcomeForCode(n)
	return res, nil
}

func (d *Daraja) post(ctx context.Context, path, token string, payload interface{}) (int, map[string]interface{}, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return d.do(req)
}

func (d *Daraja) do(req *http.Request) (int, map[string]interface{}, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	body := map[string]interface{}{}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			body["errorMessage"] = strings.TrimSpace(string(data))
		}
	}
	return resp.StatusCode, body, nil
}

func str(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
