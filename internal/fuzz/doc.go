// Package fuzztests houses Go fuzz harnesses exercising the early Blood
// pipeline (source → lexer → parser). The goal is robustness smoke
// testing: arbitrary bytes must never panic a pass or blow the allocator,
// only ever produce diagnostics and a degraded AST (§4.2 error recovery,
// §7 propagation policy).
package fuzztests
