package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"multihorizon/models"
)

// errorBody covers the error shapes the service emits: {"error": ...} from its own
// handlers and {"msg": ...} from its JWT layer.
type errorBody struct {
	Error   string `json:"error"`
	Msg     string `json:"msg"`
	Message string `json:"message"`
}

func classifyStatus(code int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	msg := eb.Error
	if msg == "" {
		msg = eb.Message
	}

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		if msg == "" {
			msg = eb.Msg
		}
		if msg == "" {
			msg = "Session expired. Please log in again."
		}
		return models.NewError(models.KindUnauthorized, msg)
	case code == http.StatusUnprocessableEntity && eb.Msg != "" && eb.Error == "":
		// Malformed or tampered token.
		return models.NewError(models.KindUnauthorized, eb.Msg)
	case code >= 400 && code < 500:
		if msg == "" {
			msg = fmt.Sprintf("Request rejected by the forecasting service (status %d).", code)
		}
		return models.NewError(models.KindValidationRejected, msg)
	default:
		if msg == "" {
			msg = http.StatusText(code)
		}
		return models.NewError(models.KindTransport, fmt.Sprintf("Forecasting service error (status %d): %s", code, msg))
	}
}

func schemaError(what string, cause error) error {
	return models.WrapError(models.KindValidationRejected, "Unexpected response from the forecasting service: "+what, cause)
}

type forecastEnvelope struct {
	Forecast *struct {
		P10 []float64 `json:"p10"`
		P50 []float64 `json:"p50"`
		P90 []float64 `json:"p90"`
	} `json:"forecast"`
	Suggestions []struct {
		Type       string   `json:"type"`
		Message    *string  `json:"message"`
		Confidence *float64 `json:"confidence"`
	} `json:"suggestions"`
}

// decodeForecast validates a forecast payload: all three quantile series must be present
// and have exactly horizon entries; every suggestion must carry a message.
func decodeForecast(body []byte, horizon int) (*models.ForecastResult, error) {
	var env forecastEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, schemaError("malformed forecast payload", err)
	}
	if env.Forecast == nil {
		return nil, schemaError("missing forecast", nil)
	}
	series := []struct {
		name   string
		values []float64
	}{
		{"p10", env.Forecast.P10},
		{"p50", env.Forecast.P50},
		{"p90", env.Forecast.P90},
	}
	for _, s := range series {
		if s.values == nil {
			return nil, schemaError("missing "+s.name, nil)
		}
		if len(s.values) != horizon {
			return nil, schemaError(fmt.Sprintf("%s has %d points, expected %d", s.name, len(s.values), horizon), nil)
		}
	}

	result := &models.ForecastResult{
		P10: env.Forecast.P10,
		P50: env.Forecast.P50,
		P90: env.Forecast.P90,
	}
	for i, s := range env.Suggestions {
		if s.Message == nil {
			return nil, schemaError(fmt.Sprintf("suggestion %d has no message", i), nil)
		}
		sg := models.Suggestion{Type: s.Type, Message: *s.Message}
		if s.Confidence != nil {
			sg.Confidence = *s.Confidence
		}
		result.Suggestions = append(result.Suggestions, sg)
	}
	return result, nil
}

func decodeUser(body []byte) (*models.UserInfo, error) {
	var u struct {
		Username  string  `json:"username"`
		StoreName *string `json:"store_name"`
	}
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, schemaError("malformed user payload", err)
	}
	if u.StoreName == nil || *u.StoreName == "" {
		return nil, models.NewError(models.KindValidationRejected, "Store name not provided by server")
	}
	return &models.UserInfo{Username: u.Username, StoreName: *u.StoreName}, nil
}

func decodeLogin(body []byte) (string, error) {
	var lr models.LoginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return "", schemaError("malformed login payload", err)
	}
	if lr.AccessToken == "" {
		return "", schemaError("missing access_token", nil)
	}
	return lr.AccessToken, nil
}

func decodeMessage(body []byte) (string, error) {
	var rr models.RegisterResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return "", schemaError("malformed payload", err)
	}
	return rr.Message, nil
}

func decodeUpload(body []byte) (*models.UploadReceipt, error) {
	var r models.UploadReceipt
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, schemaError("malformed upload payload", err)
	}
	if r.Filename == "" {
		return nil, schemaError("missing filename", nil)
	}
	return &r, nil
}

func decodePredictions(body []byte) ([]models.SavedForecast, error) {
	var env struct {
		Predictions *[]models.SavedForecast `json:"predictions"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, schemaError("malformed predictions payload", err)
	}
	if env.Predictions == nil {
		return nil, schemaError("missing predictions", nil)
	}
	return *env.Predictions, nil
}
