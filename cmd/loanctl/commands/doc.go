// Package commands defines the loanctl CLI.
//
// Commands
//
//   - calculate  Print fee, installment, net disbursement and qualification cap
//   - schedule   Print the amortization schedule of a principal
//
// Both commands run the same calculator as the HTTP service and honour the
// --policy YAML file, so operators can check a policy change offline.
package commands
