package mpesa

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type callbackEnvelope struct {
	Body *struct {
		StkCallback *struct {
			MerchantRequestID string      `json:"MerchantRequestID"`
			CheckoutRequestID string      `json:"CheckoutRequestID"`
			ResultCode        json.Number `json:"ResultCode"`
			ResultDesc        string      `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackResult is the parsed outcome of an STK callback.
type CallbackResult struct {
	Success           bool
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            float64
	ReceiptNumber     string
	TransactionDate   time.Time
	PhoneNumber       string
	Err               string
}

// Outcome is the terminal status the callback reports.
func (r CallbackResult) Outcome() Outcome {
	if r.Success {
		return OutcomeCompleted
	}
	return OutcomeForCode(r.ResultCode)
}

// ParseCallback never fails: a payload it cannot read comes back with
// Success=false and Err set, so the webhook can still be acknowledged.
func ParseCallback(raw []byte) CallbackResult {
	var env callbackEnvelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil || env.Body == nil || env.Body.StkCallback == nil {
		log.Printf("[mpesa] invalid callback payload: %v", err)
		return CallbackResult{Err: "invalid callback data"}
	}
	cb := env.Body.StkCallback
	res := CallbackResult{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultDesc:        cb.ResultDesc,
	}
	code, err := cb.ResultCode.Int64()
	if err != nil {
		res.Err = "invalid result code"
		res.ResultCode = -1
		return res
	}
	res.ResultCode = int(code)
	if res.ResultCode != ResultSuccess {
		return res
	}

	res.Success = true
	if cb.CallbackMetadata == nil {
		return res
	}
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if n, ok := item.Value.(json.Number); ok {
				res.Amount, _ = n.Float64()
			}
		case "MpesaReceiptNumber":
			res.ReceiptNumber = str(item.Value)
		case "TransactionDate":
			if t, err := time.ParseInLocation(TimestampLayout, str(item.Value), nairobi); err == nil {
				res.TransactionDate = t
			}
		case "PhoneNumber":
			res.PhoneNumber = str(item.Value)
		}
	}
	return res
}

// Ack is the body Daraja expects back from the callback URL.
func Ack() map[string]interface{} {
	return map[string]interface{}{"ResultCode": 0, "ResultDesc": "Accepted"}
}

func (r CallbackResult) String() string {
	return fmt.Sprintf("checkout=%s code=%d desc=%q receipt=%s", r.CheckoutRequestID, r.ResultCode, r.ResultDesc, r.ReceiptNumber)
}
