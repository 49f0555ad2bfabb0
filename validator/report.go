package validator

import (
	"fmt"
	"strings"
	"time"
)

// essentialFieldNames is printed under every org unit in the report.
var essentialFieldNames = []string{
	"Index - block number (0, 1, 2, ...)",
	"Timestamp - creation time (RFC 3339)",
	"Transactions - payload records",
	"Previous Hash - link to the previous block (SHA-256)",
	"Nonce - proof-of-work parameter",
	"Hash - block hash (SHA-256, leading zeros)",
}

// GenerateReport renders ValidateSystem as a markdown document.
func GenerateReport(s Snapshot) string {
	return RenderReport(ValidateSystem(s))
}

// RenderReport formats an existing result without re-auditing.
func RenderReport(res SystemResult) string {
	var b strings.Builder

	b.WriteString("# Ledger System Validation Report\n\n")
	fmt.Fprintf(&b, "**Timestamp:** %s\n", res.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "**System Valid:** %s\n\n", yesNo(res.IsValid))

	b.WriteString("## Org Unit Chains\n")
	for _, c := range res.OrgUnits {
		writeCommon(&b, c)
		b.WriteString("  - 6 essential block fields:\n")
		for _, f := range essentialFieldNames {
			fmt.Fprintf(&b, "    - %s\n", f)
		}
		writeErrors(&b, c)
	}

	b.WriteString("\n## Sub-Unit Chains\n")
	for _, c := range res.SubUnits {
		writeCommon(&b, c)
		writeLinkage(&b, c)
		writeErrors(&b, c)
	}

	b.WriteString("\n## Leaf Entity Chains\n")
	for _, c := range res.LeafEntities {
		writeCommon(&b, c)
		fmt.Fprintf(&b, "- Event Records: %d\n", c.EventRecords)
		writeLinkage(&b, c)
		writeErrors(&b, c)
	}

	return b.String()
}

func writeCommon(b *strings.Builder, c ChainResult) {
	fmt.Fprintf(b, "### %s\n", c.ChainName)
	fmt.Fprintf(b, "- Chain ID: %s\n", c.ChainID)
	fmt.Fprintf(b, "- Status: %s\n", validInvalid(c.IsValid))
	fmt.Fprintf(b, "- Blocks: %d\n", c.BlockCount)
	fmt.Fprintf(b, "- PoW Valid: %s (%d/%d at difficulty %d)\n",
		mark(c.PoW.IsValid), c.PoW.ValidBlocks, c.PoW.BlocksChecked, c.PoW.Difficulty)
	fmt.Fprintf(b, "- Hash Chain Valid: %s\n", mark(c.HashChain.IsValid))
	fmt.Fprintf(b, "- Genesis Valid: %s\n", mark(c.GenesisValid))
	fmt.Fprintf(b, "- Essential Fields: %s\n", c.EssentialFields.Summary)
}

func writeLinkage(b *strings.Builder, c ChainResult) {
	if c.Linkage == nil {
		return
	}
	fmt.Fprintf(b, "- Parent Linkage: %s (%s)\n", validInvalid(c.Linkage.Valid), c.Linkage.Info)
	if !c.Linkage.Valid {
		fmt.Fprintf(b, "- **Impact:** %s\n", c.Linkage.Impact)
	}
}

func writeErrors(b *strings.Builder, c ChainResult) {
	if len(c.Errors) == 0 {
		return
	}
	b.WriteString("- Errors:\n")
	for _, e := range c.Errors {
		fmt.Fprintf(b, "  - %s\n", e)
	}
}

func yesNo(ok bool) string {
	if ok {
		return "YES"
	}
	return "NO"
}

func validInvalid(ok bool) string {
	if ok {
		return "Valid"
	}
	return "Invalid"
}

func mark(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}
