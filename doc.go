// Package txaudit audits the codes used in FHIR test data against a
// terminology server.
//
// Every Coding found in a directory of resource instances is checked with
// CodeSystem/$validate-code and classified as PASS, FAIL, ERROR, INFO,
// EXCLUDED or UNKNOWN. Codings without a code, CodeableConcepts that only
// carry text, and code systems excluded by configuration never reach the
// server.
//
// # Quick Start
//
//	auditor, err := txaudit.New("https://tx.example.org/fhir",
//	    txaudit.WithRules(cfg.Excluded),
//	    txaudit.WithWorkers(4),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := auditor.CheckCapability(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	rep, err := auditor.Run(ctx, "input/examples")
//	if rep.HasFailures() {
//	    os.Exit(1)
//	}
//
// # Packages
//
//   - pkg/document: order-preserving JSON decoding of resource files
//   - pkg/coding: Coding and CodeableConcept detection
//   - pkg/walker: depth-first traversal producing one row per check
//   - pkg/validator: exclusion, missing-code handling and result classification
//   - pkg/terminology: the $validate-code and capability HTTP client
//   - pkg/corpus: file discovery and per-file isolation
//   - pkg/report: HTML, XLSX, CSV, JSON, YAML and SQLite reports
//
// Rows always come out in document order, whatever the worker count.
package txaudit
