package config

// Default returns a configuration populated with the built-in defaults.
// Path fields are expanded during normalize.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageRoot: "~/docsort",
			LogDir:      "~/.local/share/docsort/logs",
			APIBind:     "127.0.0.1:7733",
		},
		Workflow: Workflow{
			PollInterval:       2,
			ErrorRetryInterval: 10,
			LeaseDuration:      120,
			MaxRetries:         3,
			Workers:            2,
			InboxScanInterval:  5,
		},
		Classifier: Classifier{
			BaseURL:             "",
			Model:               "llama3.2:3b",
			TimeoutSeconds:      60,
			ConfidenceThreshold: 0.8,
			AutoApprove:         true,
		},
		Embedding: Embedding{
			BaseURL:        "",
			Model:          "nomic-embed-text",
			TimeoutSeconds: 30,
		},
		Vector: Vector{
			BaseURL:        "",
			Collection:     "docsort_chunks",
			TimeoutSeconds: 30,
		},
		Chunking: Chunking{
			TargetChars:  800,
			OverlapChars: 200,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
