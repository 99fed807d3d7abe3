package providers

// Raw provider-shaped rows. Each variant keeps the field shapes its billing
// API actually returns (string amounts for AWS, typed floats for BigQuery,
// date-key integers for Azure) so the normalizer owns every parse decision.
// A row sets exactly one provider case; the others stay nil.

// RawBatch is the outcome of one provider fetch.
type RawBatch struct {
	Provider  string
	Costs     []RawCostRecord
	Resources []RawResource
}

// RawCostRecord is a tagged variant over per-provider billing rows.
type RawCostRecord struct {
	Provider string
	AWS      *AWSCostRow
	GCP      *GCPBillingRow
	Azure    *AzureUsageRow
}

// AWSCostRow mirrors a Cost Explorer daily group. Amount and Unit arrive as
// strings from the API.
type AWSCostRow struct {
	StartDate string // "2006-01-02"
	Service   string
	Region    string
	Amount    string
	Unit      string // currency code
	Account   string
	Tags      map[string]string
}

// GCPBillingRow mirrors one row of a BigQuery billing-export query. Labels
// may nest one level (label list entries with key/value children).
type GCPBillingRow struct {
	UsageDate string // "2006-01-02"
	Service   string
	Region    string
	Cost      *float64
	Currency  string
	ProjectID string
	Labels    map[string]interface{}
}

// AzureUsageRow mirrors one row of a Cost Management usage query. DateKey is
// the YYYYMMDD integer Azure returns for daily granularity.
type AzureUsageRow struct {
	DateKey        int
	Service        string
	Location       string
	PreTaxCost     *float64
	Currency       string
	SubscriptionID string
	Tags           map[string]string
}

// RawResource is a tagged variant over per-provider inventory rows.
type RawResource struct {
	Provider string
	AWS      *AWSInstanceRow
	GCP      *GCPInstanceRow
	Azure    *AzureVMRow
}

// AWSInstanceRow mirrors an EC2 DescribeInstances entry. The adapter fills
// IdlePct on running instances from the window's mean CloudWatch
// CPUUtilization after discovery.
type AWSInstanceRow struct {
	InstanceID           string
	NameTag              string
	InstanceType         string
	Region               string
	State                string
	PublicIPAddress      string
	IdlePct              *float64 // 0-100, higher is more idle; nil when telemetry is missing
	EstimatedMonthlyCost *float64 // set only by feeds that carry a per-resource cost estimate
}

// GCPInstanceRow mirrors a Compute Engine aggregated-list entry. IdlePct is
// filled from the Cloud Monitoring CPU utilization series.
type GCPInstanceRow struct {
	ID                   string
	Name                 string
	MachineType          string
	Zone                 string
	Status               string
	NatIP                string
	IdlePct              *float64
	EstimatedMonthlyCost *float64
}

// AzureVMRow mirrors a Virtual Machines list entry. Azure Monitor needs a
// per-VM resource URI to query utilization, so Azure rows carry no idle
// signal; stopped and deallocated VMs still score through PowerState.
type AzureVMRow struct {
	VMID                 string
	Name                 string
	VMSize               string
	Location             string
	PowerState           string
	PublicIPAddress      string
	IdlePct              *float64
	EstimatedMonthlyCost *float64
}
