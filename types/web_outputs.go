package types

// OutputAuditCredential is the admin view of a credential: same payload as
// the public view plus the identity handle, which is otherwise never
// serialized.
type OutputAuditCredential struct {
	Identity string `json:"identity"`
	Credential
}

type OutputAccessedSince struct {
	Identities []string `json:"identities"`
}
