// Package config loads and validates the Overseer server configuration.
//
// Configuration comes from a YAML file decoded on top of Default, then from
// environment variables named OVERSEER_SECTION_FIELD:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("overseer.yaml")
//
// Precedence, later wins:
//
//  1. Defaults (defaults.go)
//  2. YAML file
//  3. Environment variables
//
// Validate collects every problem into one ValidationError:
//
//	configuration validation failed with 2 errors:
//	  - audit.backend: unknown backend "postgres" (want memory or sqlite)
//	  - security.authentication.keys[0].user_id: user id is required
//
// A minimal file:
//
//	server:
//	  listen_address: "127.0.0.1:8080"
//	governance:
//	  owners: ["owner@example.com"]
//	audit:
//	  backend: sqlite
//	  sqlite:
//	    path: data/audit.db
package config
