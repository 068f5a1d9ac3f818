package utils

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/almanac/internal/http/api"
)

func ParamID(ctx *gin.Context) (int, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		log.Warn().Str("id", ctx.Param("id")).Msg("invalid id")
		return 0, api.BadRequest("invalid id")
	}
	return id, nil
}

// Location resolves an IANA zone name, falling back to def when empty.
func Location(name string, def *time.Location) (*time.Location, *api.APIError) {
	if name == "" {
		return def, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, api.BadRequest("unknown timezone " + strconv.Quote(name))
	}
	return loc, nil
}

// Date parses YYYY-MM-DD as midnight in loc.
func Date(field, value string, loc *time.Location) (time.Time, *api.APIError) {
	t, err := time.ParseInLocation(time.DateOnly, value, loc)
	if err != nil {
		return time.Time{}, api.BadRequest(field + " must be YYYY-MM-DD")
	}
	return t, nil
}

// OptionalDate parses a YYYY-MM-DD date stored at midnight UTC.
func OptionalDate(field string, value *string) (*time.Time, *api.APIError) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, apiErr := Date(field, *value, time.UTC)
	if apiErr != nil {
		return nil, apiErr
	}
	return &t, nil
}

func OptionalTime(field string, value *string) (*time.Time, *api.APIError) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil, api.BadRequest(field + " must be an RFC 3339 timestamp")
	}
	return &t, nil
}
