// Package iou provides an IOU ledger: debt notes issued from one account to
// another, a fungible balance per account, and delegated spending allowances
// between account pairs.
//
// IOU is designed as a library, not a service. Import it directly into your Go
// application and give it a journal store.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/iou"
//	    "github.com/xraph/iou/store/memory"
//	)
//
//	l := iou.New(memory.New())
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	// alice owes bob 100; the face value is minted into alice's balance.
//	c, err := l.Issue(ctx, "alice", 100, "bob", 25)
//
//	// alice repays in instalments. Each payment moves value from alice to bob.
//	err = c.PayDebt(ctx, "alice", 30)
//
// # Core Concepts
//
// A Contract holds one debt record and the balance and allowance books that
// value moves through. Issuing mints the face value into the issuer's
// balance. Deposit mints into any account. PayDebt moves value from the
// debtor to the recipient and lowers the amount owed; the debt is settled once
// nothing is owed and no further payment is accepted.
//
// Every core transfer overwrites allowance(from, to) with the amount moved.
// Approve writes the same slot for classic delegation, and
// TransferWithAllowance spends it on the owner's behalf.
//
// # Journal
//
// Each operation is validated against staged copies of the books, appended to
// the contract's journal, and only then committed. A rejected operation
// changes nothing and emits nothing. Contracts can be rebuilt from the journal
// with Ledger.Open, optionally starting from a checkpoint, and processes
// sharing a store can serialize through a lock.Locker.
//
// # Events
//
// Transfer, Deposit, Issuance and Approval events are delivered in commit
// order to the plugin registry and any sink added with WithSink.
//
// # TypeID
//
// Contracts and journal entries use TypeIDs:
//
//	iou_01h2xcejqtf2nbrexx3vqjhp41  // Contract ID
//	jrn_01h455vb4pex5vsknk084sn02q  // Journal entry ID
package iou
