package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// EnergyClient queries the user service's energy endpoint before a
// lesson is allowed to start.
type EnergyClient struct {
	BaseURL string
	Timeout time.Duration
}

func NewEnergyClient(baseURL string) *EnergyClient {
	return &EnergyClient{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}
}

func (c *EnergyClient) CheckEnergy(ctx context.Context, userID string) (bool, error) {
	agent := fiber.Get(c.BaseURL + "/api/user/energy/" + userID)
	agent.Timeout(c.Timeout)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return false, fmt.Errorf("energy check failed: %w", errs[0])
	}
	if code != fiber.StatusOK {
		return false, fmt.Errorf("energy check returned status %d", code)
	}

	var result struct {
		HasEnergy bool `json:"hasEnergy"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return false, fmt.Errorf("energy check returned invalid body: %w", err)
	}

	return result.HasEnergy, nil
}
