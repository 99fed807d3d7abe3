package providers

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/cost"
)

// CLIProbe inspects the local environment (installed provider CLIs,
// credential files, environment variables) to decide whether a provider is
// worth invoking. It never issues network calls.
type CLIProbe struct {
	cfg config.ProvidersConfig
}

// NewCLIProbe builds a probe over the configured credentials.
func NewCLIProbe(cfg config.ProvidersConfig) *CLIProbe {
	return &CLIProbe{cfg: cfg}
}

func (p *CLIProbe) Status(ctx context.Context, provider string) Status {
	switch provider {
	case cost.ProviderGCP:
		return p.gcpStatus()
	case cost.ProviderAWS:
		return p.awsStatus()
	case cost.ProviderAzure:
		return p.azureStatus()
	}
	return Status{Provider: provider, Error: "unknown provider"}
}

func (p *CLIProbe) gcpStatus() Status {
	s := Status{Provider: cost.ProviderGCP}
	_, err := exec.LookPath("gcloud")
	s.Installed = err == nil

	if p.cfg.GCP.ServiceAccountJSON != "" {
		s.Authenticated = true
	} else if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		s.Authenticated = true
	} else if home, err := os.UserHomeDir(); err == nil {
		adc := filepath.Join(home, ".config", "gcloud", "application_default_credentials.json")
		if _, err := os.Stat(adc); err == nil {
			s.Authenticated = true
		}
	}
	if p.cfg.GCP.ProjectID != "" {
		s.Identifiers = append(s.Identifiers, p.cfg.GCP.ProjectID)
	}
	if !s.Authenticated {
		s.Error = "no application default credentials; run `gcloud auth application-default login` or set GCP_SERVICE_ACCOUNT_JSON"
	}
	return s
}

func (p *CLIProbe) awsStatus() Status {
	s := Status{Provider: cost.ProviderAWS}
	_, err := exec.LookPath("aws")
	s.Installed = err == nil

	if p.cfg.AWS.AccessKeyID != "" && p.cfg.AWS.SecretAccessKey != "" {
		s.Authenticated = true
	} else if home, err := os.UserHomeDir(); err == nil {
		if _, err := os.Stat(filepath.Join(home, ".aws", "credentials")); err == nil {
			s.Authenticated = true
		}
	}
	if p.cfg.AWS.Region != "" {
		s.Identifiers = append(s.Identifiers, p.cfg.AWS.Region)
	}
	if !s.Authenticated {
		s.Error = "no AWS credentials; set AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY or configure ~/.aws/credentials"
	}
	return s
}

func (p *CLIProbe) azureStatus() Status {
	s := Status{Provider: cost.ProviderAzure}
	_, err := exec.LookPath("az")
	s.Installed = err == nil

	a := p.cfg.Azure
	if a.TenantID != "" && a.ClientID != "" && a.ClientSecret != "" && a.SubscriptionID != "" {
		s.Authenticated = true
		s.Identifiers = append(s.Identifiers, a.SubscriptionID)
	}
	if !s.Authenticated {
		s.Error = "incomplete Azure service principal; set AZURE_TENANT_ID, AZURE_CLIENT_ID, AZURE_CLIENT_SECRET, AZURE_SUBSCRIPTION_ID"
	}
	return s
}
