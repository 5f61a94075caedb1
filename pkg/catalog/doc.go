// Package catalog holds the default nine-step company intake: the step
// order, the field schema of every step, Chilean RUT handling and the key
// extractor gateways use to identify a company.
package catalog
