// handlers_decode.go - Log buffer decoding handler
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/trendlog-viewer/backend/internal/models"
	"github.com/trendlog-viewer/backend/internal/parser"
)

// DecodeHandlerImpl implements the DecodeHandler interface
type DecodeHandlerImpl struct {
	decoder *parser.Decoder
}

// NewDecodeHandler creates a decode handler using decoder for requests that
// do not override its settings.
func NewDecodeHandler(decoder *parser.Decoder) DecodeHandler {
	if decoder == nil {
		decoder = parser.NewDecoder()
	}
	return &DecodeHandlerImpl{decoder: decoder}
}

// HandleDecode decodes a raw log buffer posted as JSON.
// A null datum may be sent as "nullValue": null or "nullValue": {}.
func (h *DecodeHandlerImpl) HandleDecode(c echo.Context) error {
	var req decodeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	decoder, err := req.decoder(h.decoder)
	if err != nil {
		return err
	}

	series, err := decoder.Decode(req.Records)
	if err != nil {
		return mapDomainError(err, "", "")
	}

	return c.JSON(http.StatusOK, decodeResponse{
		Count:   series.Len(),
		Range:   series.TimeRange(),
		Records: series.Raw(),
	})
}

// Request/Response types

type decodeRequest struct {
	Records            []models.LogRecord `json:"records"`
	FractionResolution string             `json:"fractionResolution,omitempty"`
	OrderPolicy        string             `json:"orderPolicy,omitempty"`
	StrictDayOfWeek    *bool              `json:"strictDayOfWeek,omitempty"`
	Location           string             `json:"location,omitempty"`
}

func (r *decodeRequest) validate() error {
	if r.Records == nil {
		return NewValidationError("records")
	}
	return nil
}

// decoder applies the request overrides on top of base.
func (r *decodeRequest) decoder(base *parser.Decoder) (*parser.Decoder, error) {
	if r.FractionResolution == "" && r.OrderPolicy == "" && r.StrictDayOfWeek == nil && r.Location == "" {
		return base, nil
	}

	cfg := base.Config()
	if r.FractionResolution != "" {
		res, err := parser.ParseFractionResolution(r.FractionResolution)
		if err != nil {
			return nil, NewBadRequestError("invalid fractionResolution", err)
		}
		cfg.Resolution = res
	}
	if r.OrderPolicy != "" {
		order, err := parser.ParseOrderPolicy(r.OrderPolicy)
		if err != nil {
			return nil, NewBadRequestError("invalid orderPolicy", err)
		}
		cfg.Order = order
	}
	if r.StrictDayOfWeek != nil {
		cfg.StrictDayOfWeek = *r.StrictDayOfWeek
	}
	if r.Location != "" {
		loc, err := time.LoadLocation(r.Location)
		if err != nil {
			return nil, NewBadRequestError("invalid location", err)
		}
		cfg.Location = loc
	}

	return parser.NewDecoder(
		parser.WithFractionResolution(cfg.Resolution),
		parser.WithOrderPolicy(cfg.Order),
		parser.WithStrictDayOfWeek(cfg.StrictDayOfWeek),
		parser.WithLocation(cfg.Location),
	), nil
}

type decodeResponse struct {
	Count   int                    `json:"count"`
	Range   *models.TimeRange      `json:"range,omitempty"`
	Records []models.DecodedRecord `json:"records"`
}
