package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jiaming2012/option-arb/src/eventmodels"
)

func ValidateTag(tag string) error {
	// Maximum lenght of 255 characters.
	// Valid characters are letters, numbers and -
	if len(tag) > 255 {
		return fmt.Errorf("tag is too long: %d", len(tag))
	}

	for _, c := range tag {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-') {
			return fmt.Errorf("invalid character in tag: %c (%s)", c, tag)
		}
	}

	return nil
}

// EncodeTag packs the signal direction, the relative mispricing and the
// requested limit price into a Tradier order tag. Dots are not valid tag
// characters, so decimal points become single dashes and the three parts are
// joined with a triple dash.
func EncodeTag(direction eventmodels.SignalDirection, mispricing float64, requestedPrc float64) string {
	directionPart := string(direction)
	mispricingPart := strings.Replace(fmt.Sprintf("%.4f", mispricing), ".", "-", -1)
	mispricingPart = strings.Replace(mispricingPart, "-0-", "neg0-", 1)
	requestedPrcPart := strings.Replace(fmt.Sprintf("%.2f", requestedPrc), ".", "-", -1)

	return fmt.Sprintf("%s---%s---%s", directionPart, mispricingPart, requestedPrcPart)
}

// sell---0-1842---1-05
func DecodeTag(tag string) (eventmodels.SignalDirection, float64, float64, error) {
	parts := strings.Split(tag, "---")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("invalid tag: expected 3 parts: %s", tag)
	}

	mispricingPart := strings.Replace(parts[1], "neg0-", "-0-", 1)
	mispricingPart = strings.Replace(mispricingPart, "-", ".", -1)
	if strings.HasPrefix(mispricingPart, ".") {
		mispricingPart = "-" + mispricingPart[1:]
	}
	requestedPrcPart := strings.Replace(parts[2], "-", ".", -1)

	direction := eventmodels.SignalDirection(parts[0])
	mispricing := 0.0
	requestedPrc := 0.0

	if _, err := fmt.Sscanf(mispricingPart, "%f", &mispricing); err != nil {
		return "", 0, 0, fmt.Errorf("failed to parse mispricing: %w", err)
	}

	if _, err := fmt.Sscanf(requestedPrcPart, "%f", &requestedPrc); err != nil {
		return "", 0, 0, fmt.Errorf("failed to parse requestedPrc: %w", err)
	}

	return direction, mispricing, requestedPrc, nil
}

func ParseTradierResponse[T any](response []byte) ([]T, error) {
	header := make(map[string]json.RawMessage)

	if err := json.Unmarshal(response, &header); err != nil {
		return nil, fmt.Errorf("ParseTradierResponse(): failed to unmarshal header in response: %w", err)
	}

	var dtos []T

	if len(header) == 1 {
		var key string
		for k := range header {
			key = k
		}

		v := header[key]

		if string(v) == "\"null\"" {
			return []T{}, nil
		}

		data := make(map[string]json.RawMessage)
		if err := json.Unmarshal(v, &data); err != nil {
			return nil, fmt.Errorf("ParseTradierResponse(): failed to unmarshal data in response: %w", err)
		}

		if len(data) == 1 {
			var key string
			for k := range data {
				key = k
			}

			v := data[key]

			var singleDTO T
			if err := json.Unmarshal(v, &singleDTO); err == nil {
				dtos = append(dtos, singleDTO)
			} else {
				if err := json.Unmarshal(v, &dtos); err != nil {
					return nil, fmt.Errorf("ParseTradierResponse(): failed to unmarshal dtos in response: %w", err)
				}
			}
		} else {
			return nil, fmt.Errorf("ParseTradierResponse(): expected 1 key in data, got %v: %v", len(data), data)
		}
	} else {
		return nil, fmt.Errorf("ParseTradierResponse(): expected 1 key in header, got %v: %v", len(header), header)
	}

	return dtos, nil
}
