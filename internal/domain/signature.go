package domain

// Detached signature artifact layout.
const (
	SignatureBlockSize    = 64
	SignatureArtifactSize = 2 * SignatureBlockSize
)

// User-visible signature messages.
const (
	MsgSignatureValid    = "PDF signature is valid."
	MsgArtifactTampered  = "Warning: Signature file has been tampered with."
	MsgSignerHashInvalid = "WARNING: Signer hash invalid - Signature has been tampered with or signer name is incorrect in the filename!"
	MsgDataHashInvalid   = "WARNING: Data hash invalid - PDF file does not match or signature has been tampered with!"
)

// KeyPair describes a freshly generated signing identity.
type KeyPair struct {
	Identity          string `json:"identity"`
	PublicKeyLocation string `json:"public_key_location"`
	PrivateKeyPath    string `json:"private_key_path"`
	Published         bool   `json:"published"`
}

// Verification is the outcome of checking a detached signature. Failed
// checks are reported as warnings, not errors.
type Verification struct {
	Valid    bool     `json:"valid"`
	Status   string   `json:"status,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
