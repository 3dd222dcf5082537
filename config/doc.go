// Package config loads the test-run settings.
//
// Settings are read with viper from local.test.yml (searched in ./etc,
// ./app/etc, the working directory and its parents), an optional .env file
// (godotenv) and FIXTUREKIT_* environment variables. FIXTUREKIT_BOOTSTRAP
// points at an explicit settings file.
//
//	settings, err := config.Load()
//	if errors.IsConfiguration(err) { ... }
//
// Nested keys bind from the environment by replacing dots with underscores:
// FIXTUREKIT_DATABASE_DSN sets database.dsn.
package config
