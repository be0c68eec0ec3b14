/**
 * @description
 * This file handles the configuration management for the billing-service.
 * It uses the 'viper' library to load configuration from environment
 * variables, providing a centralized and consistent way to manage
 * application settings.
 *
 * The plan catalog is part of configuration: PLAN_CATALOG holds a JSON
 * object mapping Polar product ids to their credit grant and plan name. It
 * is parsed and validated here, once, at startup; the running service never
 * mutates it.
 */
package config

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/viper"

	"github.com/tradedeck/billing-service/internal/catalog"
)

// defaultPlanCatalog covers the two stock plans. Deployments override it
// with the real Polar product ids via PLAN_CATALOG.
const defaultPlanCatalog = `{
    "PRODUCT_ID_STARTER": {"credits": 50, "name": "Starter"},
    "PRODUCT_ID_PRO": {"credits": 200, "name": "Pro"}
}`

// Config holds all configuration for the application.
type Config struct {
	ServerPort          string `mapstructure:"SERVER_PORT"`
	DatabaseURL         string `mapstructure:"DATABASE_URL"`
	ClerkJWKSURL        string `mapstructure:"CLERK_JWKS_URL"`
	PolarAccessToken    string `mapstructure:"POLAR_ACCESS_TOKEN"`
	PolarOrganizationID string `mapstructure:"POLAR_ORGANIZATION_ID"`
	PolarWebhookSecret  string `mapstructure:"POLAR_WEBHOOK_SECRET"`
	RabbitMQURL         string `mapstructure:"RABBITMQ_URL"`
	PlanCatalogJSON     string `mapstructure:"PLAN_CATALOG"`

	// Plans is the parsed, validated plan catalog.
	Plans map[string]catalog.Plan `mapstructure:"-"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SERVER_PORT", "8086")
	viper.SetDefault("PLAN_CATALOG", defaultPlanCatalog)
	viper.AutomaticEnv()

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("CLERK_JWKS_URL")
	_ = viper.BindEnv("POLAR_ACCESS_TOKEN")
	_ = viper.BindEnv("POLAR_ORGANIZATION_ID")
	_ = viper.BindEnv("POLAR_WEBHOOK_SECRET")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("PLAN_CATALOG")

	if err = viper.Unmarshal(&config); err != nil {
		return config, err
	}

	if config.PolarWebhookSecret == "" {
		return config, fmt.Errorf("POLAR_WEBHOOK_SECRET must be set; unsigned webhooks are not accepted")
	}

	if err = json.Unmarshal([]byte(config.PlanCatalogJSON), &config.Plans); err != nil {
		return config, fmt.Errorf("PLAN_CATALOG is not valid JSON: %w", err)
	}

	return config, nil
}
