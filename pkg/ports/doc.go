// Package ports declares the collaborator interfaces the resolution core
// consumes: the memoized Executor and the TemplateProvider. It also ships
// contract test suites that adapter implementations run to prove they honor
// the interface guarantees.
package ports
