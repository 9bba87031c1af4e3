// Package model defines the tabular records shared by the generator and the
// recipes.
//
// Records are plain values. Money is carried as decimal.Decimal rounded to
// cents; calendar arithmetic is done on UTC midnights so that two runs with
// the same seed produce the same rows and the same summaries.
//
// # Tables
//
//   - Store, Product, Customer: reference data
//   - Promotion, LoyaltyRule: commercial terms
//   - SalesHeader, SalesLineItem: transactions
//   - InventorySnapshot: end-of-day stock per store, product and day
//
// A Dataset bundles one run's tables together with the observation Window.
package model
