// Package config handles configuration loading for mediator-admin.
//
// # Overview
//
// Configuration is loaded from a YAML file, or a TOML file when the path ends
// in .toml. Both formats share the same field names.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${MEDIATOR_JWT_SECRET}"
//
// Unset variables expand to an empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	auth:
//	  token_ttl: "24h"
//	dedupe:
//	  ttl: "5m"
//
// # Configuration Sections
//
//	server:
//	  grpc_addr: "127.0.0.1:50061"
//
//	tailscale:
//	  enabled: false
//	  hostname: "mediator-admin"
//	  auth_key: "${TS_AUTHKEY}"
//
//	database:
//	  path: "./mediator.db"
//
//	auth:
//	  jwt_secret: "${MEDIATOR_JWT_SECRET}"  # empty disables auth
//
//	dedupe:
//	  ttl: "5m"
//	  max_size: 100000
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	seed:
//	  admins:
//	    - subject_type: principal
//	      subject_id: ops
//	      role: admin
//	    - subject_type: connection
//	      subject_id: ops/console   # <principal>/<x-connection-id>
//	      role: admin
//	  mediation_records:
//	    - mediation_id: med-1
//	      connection_id: conn-1
//	      state: request_received
//	  routes:
//	    - record_id: route-1
//	      connection_id: conn-1
//	      recipient_key: "did:key:z6Mk..."
package config
