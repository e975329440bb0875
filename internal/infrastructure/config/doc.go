// Package config handles loading and validating waterd configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields and policy bounds
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (gateway secret, API keys, trigger secret) should be
//     set via environment variables, not committed in the config file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Zone.Name)
package config
