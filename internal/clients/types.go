package clients

// BlockLatest is the block tag used for reads.
const BlockLatest = "latest"

const (
	TxTypeInvoke = "INVOKE"
	DAModeL1     = "L1"
)

// Simulation flags accepted by starknet_estimateFee.
const (
	SimulationSkipValidate = "SKIP_VALIDATE"
)

type FunctionCall struct {
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
}

type ResourceBound struct {
	MaxAmount       string `json:"max_amount"`
	MaxPricePerUnit string `json:"max_price_per_unit"`
}

type ResourceBounds struct {
	L1Gas     ResourceBound `json:"l1_gas"`
	L2Gas     ResourceBound `json:"l2_gas"`
	L1DataGas ResourceBound `json:"l1_data_gas"`
}

// InvokeTxnV3 is a broadcasted version 3 invoke transaction.
type InvokeTxnV3 struct {
	Type                      string         `json:"type"`
	Version                   string         `json:"version"`
	SenderAddress             string         `json:"sender_address"`
	Calldata                  []string       `json:"calldata"`
	Signature                 []string       `json:"signature"`
	Nonce                     string         `json:"nonce"`
	ResourceBounds            ResourceBounds `json:"resource_bounds"`
	Tip                       string         `json:"tip"`
	PaymasterData             []string       `json:"paymaster_data"`
	AccountDeploymentData     []string       `json:"account_deployment_data"`
	NonceDataAvailabilityMode string         `json:"nonce_data_availability_mode"`
	FeeDataAvailabilityMode   string         `json:"fee_data_availability_mode"`
}

type FeeEstimate struct {
	L1GasConsumed     string `json:"l1_gas_consumed"`
	L1GasPrice        string `json:"l1_gas_price"`
	L2GasConsumed     string `json:"l2_gas_consumed"`
	L2GasPrice        string `json:"l2_gas_price"`
	L1DataGasConsumed string `json:"l1_data_gas_consumed"`
	L1DataGasPrice    string `json:"l1_data_gas_price"`
	OverallFee        string `json:"overall_fee"`
	Unit              string `json:"unit"`
}

type AddInvokeResponse struct {
	TransactionHash string `json:"transaction_hash"`
}

type TransactionStatusResponse struct {
	FinalityStatus  string `json:"finality_status"`
	ExecutionStatus string `json:"execution_status,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
}
