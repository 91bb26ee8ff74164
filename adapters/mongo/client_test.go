package mongo

import "testing"

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://db.internal:27017")
	t.Setenv("MONGODB_DATABASE", "sufra_test")

	config := ConfigFromEnv()
	if config.URI != "mongodb://db.internal:27017" {
		t.Errorf("URI = %q", config.URI)
	}
	if config.Database != "sufra_test" {
		t.Errorf("Database = %q", config.Database)
	}
}

func TestConfigFromEnvUnset(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("MONGODB_DATABASE", "")

	config := ConfigFromEnv()
	if config.URI != "" || config.Database != "" {
		t.Errorf("expected zero config, got %+v", config)
	}
}
