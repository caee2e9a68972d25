// Package record prepares CVE JSON containers for submission.
//
// A container file may hold a bare CNA or ADP container or a full CVE record;
// the Extract helpers return the container either way. Before a container is
// sent it gets a providerMetadata block carrying the caller's org UUID and,
// unless disabled, an x_generator block naming the tool that produced it.
// Validate checks containers against the bundled CVE JSON 5 container schemas.
package record
