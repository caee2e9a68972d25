// Package records prepares CNA and ADP containers and submits them.
//
// Every submission runs the same steps: extract the container from a full
// record if needed, stamp providerMetadata.orgId, add x_generator, validate
// against the matching container schema, then call CVE Services.
package records
