package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"

	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/cost"
	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
	"github.com/spendlens/spendlens/internal/pkg/logger"
)

// AzureAdapter queries Cost Management for daily usage groups and the
// Compute API for virtual machine inventory.
type AzureAdapter struct {
	cfg    config.AzureConfig
	logger *logger.Logger
}

// NewAzureAdapter builds the Azure adapter.
func NewAzureAdapter(cfg config.AzureConfig, log *logger.Logger) *AzureAdapter {
	return &AzureAdapter{cfg: cfg, logger: log.With("provider", cost.ProviderAzure)}
}

func (a *AzureAdapter) Provider() string {
	return cost.ProviderAzure
}

func (a *AzureAdapter) Fetch(ctx context.Context, window cost.Window) (*RawBatch, error) {
	if a.cfg.TenantID == "" || a.cfg.ClientID == "" || a.cfg.ClientSecret == "" || a.cfg.SubscriptionID == "" {
		return nil, apperrors.NotConfigured(cost.ProviderAzure,
			"set AZURE_TENANT_ID, AZURE_CLIENT_ID, AZURE_CLIENT_SECRET, AZURE_SUBSCRIPTION_ID")
	}

	credential, err := azidentity.NewClientSecretCredential(a.cfg.TenantID, a.cfg.ClientID, a.cfg.ClientSecret, nil)
	if err != nil {
		return nil, apperrors.AuthFailed(cost.ProviderAzure, err)
	}

	costs, err := a.fetchCosts(ctx, credential, window)
	if err != nil {
		return nil, classifyFetchErr(cost.ProviderAzure, err)
	}
	if len(costs) == 0 {
		return nil, apperrors.Empty(cost.ProviderAzure)
	}

	resources, err := a.fetchVMs(ctx, credential)
	if err != nil {
		a.logger.ErrorWithErr(err, "vm inventory fetch failed, continuing with costs only")
		resources = nil
	}

	return &RawBatch{Provider: cost.ProviderAzure, Costs: costs, Resources: resources}, nil
}

func (a *AzureAdapter) fetchCosts(ctx context.Context, credential azcore.TokenCredential, window cost.Window) ([]RawCostRecord, error) {
	client, err := armcostmanagement.NewQueryClient(credential, nil)
	if err != nil {
		return nil, fmt.Errorf("cost management client: %w", err)
	}

	scope := fmt.Sprintf("subscriptions/%s", a.cfg.SubscriptionID)

	from := window.Start
	to := window.End
	sumFunc := armcostmanagement.FunctionTypeSum
	dimGrouping := armcostmanagement.QueryColumnTypeDimension
	granularity := armcostmanagement.GranularityTypeDaily
	timeframe := armcostmanagement.TimeframeTypeCustom
	exportType := armcostmanagement.ExportTypeActualCost

	queryDef := armcostmanagement.QueryDefinition{
		Type:      &exportType,
		Timeframe: &timeframe,
		TimePeriod: &armcostmanagement.QueryTimePeriod{
			From: &from,
			To:   &to,
		},
		Dataset: &armcostmanagement.QueryDataset{
			Granularity: &granularity,
			Aggregation: map[string]*armcostmanagement.QueryAggregation{
				"PreTaxCost": {Name: ptrString("PreTaxCost"), Function: &sumFunc},
			},
			Grouping: []*armcostmanagement.QueryGrouping{
				{Type: &dimGrouping, Name: ptrString("ServiceName")},
				{Type: &dimGrouping, Name: ptrString("ResourceLocation")},
			},
		},
	}

	result, err := client.Usage(ctx, scope, queryDef, nil)
	if err != nil {
		return nil, fmt.Errorf("cost management query: %w", err)
	}
	if result.Properties == nil || result.Properties.Rows == nil {
		return nil, nil
	}

	colIndex := make(map[string]int)
	for i, col := range result.Properties.Columns {
		if col.Name != nil {
			colIndex[*col.Name] = i
		}
	}
	costIdx, hasCost := colIndex["PreTaxCost"]
	serviceIdx, hasService := colIndex["ServiceName"]
	locationIdx, hasLocation := colIndex["ResourceLocation"]
	currencyIdx, hasCurrency := colIndex["Currency"]
	dateIdx, hasDate := colIndex["UsageDateKey"]
	if !hasDate {
		dateIdx, hasDate = colIndex["UsageDate"]
	}

	var rows []RawCostRecord
	for _, row := range result.Properties.Rows {
		if len(row) == 0 {
			continue
		}
		raw := AzureUsageRow{SubscriptionID: a.cfg.SubscriptionID}
		if hasCost && costIdx < len(row) {
			if v, ok := row[costIdx].(float64); ok {
				c := v
				raw.PreTaxCost = &c
			}
		}
		if hasService && serviceIdx < len(row) {
			if v, ok := row[serviceIdx].(string); ok {
				raw.Service = v
			}
		}
		if hasLocation && locationIdx < len(row) {
			if v, ok := row[locationIdx].(string); ok {
				raw.Location = v
			}
		}
		if hasCurrency && currencyIdx < len(row) {
			if v, ok := row[currencyIdx].(string); ok {
				raw.Currency = v
			}
		}
		if hasDate && dateIdx < len(row) {
			if v, ok := row[dateIdx].(float64); ok {
				raw.DateKey = int(v)
			}
		}
		rows = append(rows, RawCostRecord{Provider: cost.ProviderAzure, Azure: &raw})
	}
	return rows, nil
}

func (a *AzureAdapter) fetchVMs(ctx context.Context, credential azcore.TokenCredential) ([]RawResource, error) {
	client, err := armcompute.NewVirtualMachinesClient(a.cfg.SubscriptionID, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("compute client: %w", err)
	}

	var out []RawResource
	expand := armcompute.ExpandTypesForListVMsInstanceView
	pager := client.NewListAllPager(&armcompute.VirtualMachinesClientListAllOptions{Expand: &expand})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list virtual machines: %w", err)
		}
		for _, vm := range page.Value {
			if vm == nil {
				continue
			}
			row := AzureVMRow{}
			if vm.ID != nil {
				row.VMID = *vm.ID
			}
			if vm.Name != nil {
				row.Name = *vm.Name
			}
			if vm.Location != nil {
				row.Location = *vm.Location
			}
			if vm.Properties != nil {
				if hw := vm.Properties.HardwareProfile; hw != nil && hw.VMSize != nil {
					row.VMSize = string(*hw.VMSize)
				}
				row.PowerState = powerState(vm.Properties.InstanceView)
			}
			out = append(out, RawResource{Provider: cost.ProviderAzure, Azure: &row})
		}
	}
	return out, nil
}

// powerState extracts the "PowerState/<state>" code from the instance view.
func powerState(view *armcompute.VirtualMachineInstanceView) string {
	if view == nil {
		return ""
	}
	for _, s := range view.Statuses {
		if s == nil || s.Code == nil {
			continue
		}
		if strings.HasPrefix(*s.Code, "PowerState/") {
			return strings.TrimPrefix(*s.Code, "PowerState/")
		}
	}
	return ""
}

func ptrString(s string) *string {
	return &s
}
