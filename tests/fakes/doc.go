// Package fakes provides test doubles for secretctl store interfaces.
//
// This package contains fake implementations of external client interfaces
// that allow unit testing of store backends without real service
// dependencies. Fakes are manually implemented (not generated) to provide
// precise control over test behavior.
//
// Usage:
//
//	fake := fakes.NewFakeSecretsManagerClient()
//	fake.AddSecret("staging/db-password", `{"username":"admin"}`, tags)
//	store, err := stores.NewAWSSecretsManagerStore("aws", cfg,
//	    stores.WithSecretsManagerClient(fake))
//	// Test store methods...
package fakes
