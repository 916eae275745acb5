package iou

import "github.com/xraph/iou/id"

// ID is the primary identifier type for all IOU entities.
type ID = id.ID

// ContractID identifies an IOU contract.
type ContractID = id.ContractID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
