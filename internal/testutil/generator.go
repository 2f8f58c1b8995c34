package testutil

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var accounts = []string{
	"expenses:food:groceries",
	"expenses:food:restaurants",
	"expenses:transport:fuel",
	"expenses:utilities:electricity",
	"expenses:utilities:water",
	"assets:bank:checking",
	"assets:bank:savings",
	"assets:cash",
	"liabilities:credit:visa",
	"income:salary",
	"расходы:продукты",
	"支出:食費",
}

var commodities = []string{"$", "EUR", "RUB"}

// GenerateJournal returns a journal with numTransactions tidy transactions.
func GenerateJournal(numTransactions int) string {
	var sb strings.Builder

	for i := 0; i < numTransactions; i++ {
		year := 2020 + (i / 365)
		month := (i/30)%12 + 1
		day := i%28 + 1

		fromAcc := accounts[i%len(accounts)]
		toAcc := accounts[(i+1)%len(accounts)]
		amount := (i%1000 + 1) * 10

		fmt.Fprintf(&sb, "%04d-%02d-%02d * Payee %d | Transaction note\n", year, month, day, i)
		fmt.Fprintf(&sb, "    %s  %s\n", fromAcc, formatAmount(i, amount))

		if i%5 == 0 {
			fmt.Fprintf(&sb, "    %s  %s @ $1.10\n", toAcc, formatAmount(i, amount))
			sb.WriteString("    assets:cash\n")
		} else {
			fmt.Fprintf(&sb, "    %s\n", toAcc)
		}

		if i%10 == 0 {
			fmt.Fprintf(&sb, "    ; tag:value%d\n", i)
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

func formatAmount(i, cents int) string {
	commodity := commodities[i%len(commodities)]
	if commodity == "$" {
		return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
	}
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, commodity)
}

// GenerateMessyJournal returns a journal with the same kind of content as
// GenerateJournal but with irregular indentation, gaps, trailing blanks,
// repeated blank lines, comments and directives mixed in. The output is
// deterministic for a given seed.
func GenerateMessyJournal(numTransactions int, seed int64) string {
	rng := rand.New(rand.NewSource(seed))
	var sb strings.Builder

	indent := func() string {
		return []string{" ", "  ", "\t", "    ", "        "}[rng.Intn(5)]
	}
	gap := func() string {
		return []string{"  ", "   ", "\t", "      ", " \t "}[rng.Intn(5)]
	}
	trailing := func() string {
		return []string{"", "", " ", "\t", "   "}[rng.Intn(5)]
	}

	sb.WriteString("; generated journal" + trailing() + "\n")
	sb.WriteString("account assets:cash" + trailing() + "\n")
	sb.WriteString("    note petty cash\n")
	sb.WriteString("commodity $1,000.00\n\n\n")

	for i := 0; i < numTransactions; i++ {
		month := (i/30)%12 + 1
		day := i%28 + 1
		fromAcc := accounts[i%len(accounts)]
		toAcc := accounts[(i+3)%len(accounts)]
		amount := (i%1000 + 1) * 10

		status := []string{"", "* ", "! "}[i%3]
		fmt.Fprintf(&sb, "2024/%02d/%02d %s(#%d)   Payee %d%s\n", month, day, status, i, i, trailing())
		fmt.Fprintf(&sb, "%s%s%s%s%s\n", indent(), fromAcc, gap(), formatAmount(i, amount), trailing())

		switch i % 4 {
		case 0:
			fmt.Fprintf(&sb, "%s%s%s-%s%s; moved %d\n", indent(), toAcc, gap(), formatAmount(i, amount), gap(), i)
		case 1:
			fmt.Fprintf(&sb, "%s%s%s%s @@ $%d%s\n", indent(), toAcc, gap(), formatAmount(i+1, amount), amount/50, trailing())
			fmt.Fprintf(&sb, "%s%s%s\n", indent(), "assets:cash", trailing())
		case 2:
			fmt.Fprintf(&sb, "%s%s%s\n", indent(), toAcc, trailing())
			fmt.Fprintf(&sb, "%s; note %d\n", indent(), i)
		default:
			fmt.Fprintf(&sb, "%s(%s)%s\n", indent(), toAcc, trailing())
		}

		sb.WriteString(strings.Repeat("\n", 1+rng.Intn(3)))
		if i%7 == 0 {
			fmt.Fprintf(&sb, "# checkpoint %d%s\n\n", i, trailing())
		}
	}

	return sb.String()
}

// GenerateIncludeTree writes numFiles journals plus a main.journal that
// includes all of them, and returns the path of main.journal.
func GenerateIncludeTree(tmpDir string, numFiles, txPerFile int) (string, error) {
	var mainContent strings.Builder

	for i := 0; i < numFiles; i++ {
		filename := fmt.Sprintf("file%d.journal", i)
		fmt.Fprintf(&mainContent, "include %s\n", filename)

		content := GenerateJournal(txPerFile)
		filePath := filepath.Join(tmpDir, filename)
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			return "", err
		}
	}

	mainPath := filepath.Join(tmpDir, "main.journal")
	if err := os.WriteFile(mainPath, []byte(mainContent.String()), 0644); err != nil {
		return "", err
	}

	return mainPath, nil
}
