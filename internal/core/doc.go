// Package core imports merchant clients, their customers, products and
// orders from a CSV file.
//
// # Import flow
//
// An import is linear and all-or-nothing:
//
//  1. The file is checked (exists, readable, below the size limit) and
//     streamed through [WrapForStreaming], which drops a UTF-8 BOM and
//     replaces invalid UTF-8.
//  2. The header must contain every required column ([ValidateHeaders]).
//  3. Every data row is validated by a [RowValidator] and then checked
//     against earlier rows of the same file. All problems are collected
//     as [RowError] values.
//  4. Only when no row failed are the records written, all of them in one
//     transaction through [Store.InTx]. In dry-run the same statements run
//     and the transaction is rolled back.
//
// # The product_ids column
//
// The cell holds a JSON list. Elements are bare references or objects:
//
//	["SKU-1", 42, {"id": "SKU-9", "name": "Mug", "price": "12.50", "quantity": 2}]
//
// See [ParseLineItems]. When order_total is absent the total is computed
// from priced items ([OrderTotal]).
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB009: Database errors (duplicates, constraints, connections)
//   - VAL001-VAL007: Validation errors (emails, numbers, product lists)
//   - FILE001-FILE006: File errors (size, format, access)
//   - MAIL001-MAIL004: Mail delivery errors
package core
