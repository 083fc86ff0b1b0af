/*
The campus-agent command runs the campus identity agents.

	campus-agent issuer     issues student identity credentials
	campus-agent holder     a wallet which accepts offers and answers proof requests
	campus-agent verifier   requests age and student proofs, streams the results
	campus-agent demo       all three roles in one process on a loopback runtime
	campus-agent bootstrap  registers the issuer DID, schema and cred def
	campus-agent explorer   serves the latest blocks of the ledger

Every flag can be given as an environment variable with the CAMPUS_ prefix,
e.g. CAMPUS_PORT, or in a file given with --config. The explorer's variables
have an extra EXPLORER_ part, e.g. CAMPUS_EXPLORER_RPC_URL.
*/
package main
