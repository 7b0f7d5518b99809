package agents

import (
	"context"

	"spark-service/internal/ledger"
)

type CertificateAgent struct{}

func NewCertificateAgent() *CertificateAgent { return &CertificateAgent{} }

func (a *CertificateAgent) Name() string { return "certificate" }
func (a *CertificateAgent) Role() string { return "Certificate generation and processing" }
func (a *CertificateAgent) Actions() []string {
	return []string{"generate_hash", "upload_ipfs", "create_certificate"}
}

func (a *CertificateAgent) Process(_ context.Context, t Task) (any, error) {
	switch t.Action {
	case "generate_hash":
		return ledger.Hash(t.Input["certificate_data"])
	case "upload_ipfs":
		return ledger.IPFSHash()
	case "create_certificate":
		hash, err := ledger.Hash(t.Input["certificate_data"])
		if err != nil {
			return nil, err
		}
		ipfs, err := ledger.IPFSHash()
		if err != nil {
			return nil, err
		}
		return map[string]string{"blockchain_hash": hash, "ipfs_hash": ipfs}, nil
	default:
		return nil, unknownAction(a.Name(), t.Action)
	}
}
