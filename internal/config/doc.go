// Package config loads the inboxdraft configuration with viper.
//
// Values are layered: built-in defaults, an optional YAML file, INBOXDRAFT_*
// environment variables (dots become underscores, e.g. INBOXDRAFT_LLM_PROJECT)
// and finally command-line flags that were set explicitly.
//
// Example config.yaml:
//
//	http:
//	  addr: ":8080"
//	  base_url: "https://addon.example.com"
//	auth:
//	  verify_id_token: true
//	llm:
//	  backend: vertex
//	  project: my-project
//	  location: us-central1
//	  model: gemini-2.5-flash
//	cache:
//	  path: /var/lib/inboxdraft/cache.db
//	  ttl: 24h
package config
