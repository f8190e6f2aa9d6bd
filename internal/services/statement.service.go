package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/kassaflow/ledger/internal/apperr"
	"github.com/kassaflow/ledger/internal/model"
	"github.com/kassaflow/ledger/pkg/logger"
	"github.com/kassaflow/ledger/pkg/prom"
)

type StatementOperationReader interface {
	ListActualDetailsInRange(ctx context.Context, from, to time.Time) ([]*model.OperationDetail, error)
}

// StatementService reconciles a date range of the finance log into a report:
// income and expense sections, transfer legs re-paired by mutual reference,
// and per-desk closings computed over the statement's own rows.
type StatementService struct {
	operationRepo StatementOperationReader
}

func NewStatementService(operationRepo StatementOperationReader) *StatementService {
	return &StatementService{operationRepo: operationRepo}
}

// Build assembles the statement for [dateFrom, dateTo]. Transfer legs whose
// sibling is missing from the range, or whose cross-references are not
// mutual, are counted as orphans and excluded from the transfer section.
func (s *StatementService) Build(ctx context.Context, dateFrom, dateTo time.Time) (*model.Statement, error) {
	if dateFrom.IsZero() || dateTo.IsZero() {
		return nil, apperr.Validation("date_from and date_to are required")
	}
	if dateTo.Before(dateFrom) {
		return nil, apperr.Validation("date_to must not precede date_from")
	}

	started := time.Now()
	operations, err := s.operationRepo.ListActualDetailsInRange(ctx, dateFrom, dateTo)
	if err != nil {
		return nil, err
	}

	statement := &model.Statement{
		DateFrom:     dateFrom,
		DateTo:       dateTo,
		Income:       []model.StatementRow{},
		Expense:      []model.StatementRow{},
		Transfers:    []model.TransferDetail{},
		DeskClosings: []model.DeskClosing{},
	}

	var transferLegs []*model.OperationDetail
	closings := map[string]decimal.Decimal{}

	for _, op := range operations {
		switch op.Type {
		case model.OperationTypeIncome:
			statement.Income = append(statement.Income, toStatementRow(op))
		case model.OperationTypeExpense:
			statement.Expense = append(statement.Expense, toStatementRow(op))
		case model.OperationTypeTransfer:
			transferLegs = append(transferLegs, op)
		}
	}

	statement.Transfers, statement.OrphanedLegs = pairTransferLegs(transferLegs)

	// Desk closings sum the statement's own rows, orphaned legs included
	// only via their surviving pairs: an excluded leg moves no money in
	// this report.
	for _, row := range statement.Income {
		closings[row.CashDeskName] = closings[row.CashDeskName].Add(row.Amount)
		statement.TotalIncome = statement.TotalIncome.Add(row.Amount)
	}
	for _, row := range statement.Expense {
		closings[row.CashDeskName] = closings[row.CashDeskName].Add(row.Amount)
		statement.TotalExpense = statement.TotalExpense.Add(row.Amount)
	}
	for _, t := range statement.Transfers {
		closings[t.SenderCashDesk] = closings[t.SenderCashDesk].Sub(t.Amount)
		closings[t.ReceiverCashDesk] = closings[t.ReceiverCashDesk].Add(t.Amount)
	}
	statement.TotalIncome = statement.TotalIncome.Round(2)
	statement.TotalExpense = statement.TotalExpense.Round(2)

	names := make([]string, 0, len(closings))
	for name := range closings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		statement.DeskClosings = append(statement.DeskClosings, model.DeskClosing{
			CashDeskName: name,
			Balance:      closings[name].Round(2),
		})
	}

	prom.ObserveStatementBuildDuration(time.Since(started).Seconds())
	logger.Info("statement built",
		"date_from", dateFrom.Format(model.DateLayout),
		"date_to", dateTo.Format(model.DateLayout),
		"income_rows", len(statement.Income),
		"expense_rows", len(statement.Expense),
		"transfers", len(statement.Transfers),
		"orphaned_legs", statement.OrphanedLegs,
	)

	return statement, nil
}

// ExportCSV renders a statement into the flat export layout: one fixed set
// of columns shared by all sections, with section headers and totals
// interleaved as literal rows.
func (s *StatementService) ExportCSV(ctx context.Context, dateFrom, dateTo time.Time) ([]byte, error) {
	statement, err := s.Build(ctx, dateFrom, dateTo)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	write := func(record ...string) error {
		return w.Write(record)
	}

	header := []string{"Date", "Amount", "Category", "Client", "Worker", "Cash desk", "Description"}
	blank := make([]string, len(header))

	if err := write("Statement", exportDate(statement.DateFrom)+" - "+exportDate(statement.DateTo), "", "", "", "", ""); err != nil {
		return nil, errors.Wrap(err, "write statement header")
	}

	writeSection := func(title string, rows []model.StatementRow, total decimal.Decimal) error {
		if err := write(blank...); err != nil {
			return err
		}
		if err := write(title, "", "", "", "", "", ""); err != nil {
			return err
		}
		if err := w.Write(header); err != nil {
			return err
		}
		for _, row := range rows {
			if err := write(
				exportDate(row.Date),
				row.Amount.StringFixed(2),
				row.Category,
				clientDisplay(row),
				workerDisplay(row),
				row.CashDeskName,
				row.Description,
			); err != nil {
				return err
			}
		}
		return write("Total", total.StringFixed(2), "", "", "", "", "")
	}

	if err := writeSection("Income", statement.Income, statement.TotalIncome); err != nil {
		return nil, errors.Wrap(err, "write income section")
	}
	if err := writeSection("Expense", statement.Expense, statement.TotalExpense); err != nil {
		return nil, errors.Wrap(err, "write expense section")
	}

	if err := write(blank...); err != nil {
		return nil, errors.Wrap(err, "write transfer section")
	}
	if err := write("Transfers", "", "", "", "", "", ""); err != nil {
		return nil, errors.Wrap(err, "write transfer section")
	}
	if err := w.Write(header); err != nil {
		return nil, errors.Wrap(err, "write transfer section")
	}
	for _, t := range statement.Transfers {
		if err := write(
			exportDate(t.Date),
			t.Amount.StringFixed(2),
			t.Category,
			"",
			"",
			t.SenderCashDesk+" -> "+t.ReceiverCashDesk,
			t.Description,
		); err != nil {
			return nil, errors.Wrap(err, "write transfer section")
		}
	}

	if err := write(blank...); err != nil {
		return nil, errors.Wrap(err, "write closing section")
	}
	if err := write("Closing balances", "", "", "", "", "", ""); err != nil {
		return nil, errors.Wrap(err, "write closing section")
	}
	for _, c := range statement.DeskClosings {
		if err := write(c.CashDeskName, c.Balance.StringFixed(2), "", "", "", "", ""); err != nil {
			return nil, errors.Wrap(err, "write closing section")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "flush csv")
	}

	prom.StatementExported()
	return buf.Bytes(), nil
}

// pairTransferLegs merges transfer legs into one record per pair. Pairing
// requires the cross-references to be mutual; one-directional references do
// not qualify. Legs with no qualifying sibling are counted as orphans.
func pairTransferLegs(legs []*model.OperationDetail) ([]model.TransferDetail, int) {
	byID := make(map[int64]*model.OperationDetail, len(legs))
	for _, leg := range legs {
		byID[leg.ID] = leg
	}

	transfers := []model.TransferDetail{}
	processed := make(map[int64]bool, len(legs))
	orphans := 0

	for _, leg := range legs {
		if processed[leg.ID] {
			continue
		}

		sibling := mutualSibling(leg, byID)
		if sibling == nil {
			processed[leg.ID] = true
			orphans++
			prom.OrphanedTransferLeg()
			logger.Warn("orphaned transfer leg excluded from statement",
				"operation_id", leg.ID,
				"cash_desk", leg.CashDeskName,
				"amount", leg.Amount.String(),
			)
			continue
		}

		sender, receiver := leg, sibling
		if leg.Amount.IsPositive() {
			sender, receiver = sibling, leg
		}
		transfers = append(transfers, model.TransferDetail{
			Date:             receiver.Date,
			Amount:           receiver.Amount.Abs().Round(2),
			Category:         receiver.Category,
			SenderCashDesk:   sender.CashDeskName,
			ReceiverCashDesk: receiver.CashDeskName,
			Description:      strings.TrimSuffix(strings.TrimSuffix(receiver.Description, " (incoming)"), " (outgoing)"),
		})
		processed[leg.ID] = true
		processed[sibling.ID] = true
	}

	return transfers, orphans
}

// mutualSibling returns the leg referenced by this leg's transfer_pair_id,
// but only when that sibling's own reference points back.
func mutualSibling(leg *model.OperationDetail, byID map[int64]*model.OperationDetail) *model.OperationDetail {
	if leg.TransferPairID == nil {
		return nil
	}
	sibling, ok := byID[*leg.TransferPairID]
	if !ok || sibling.TransferPairID == nil || *sibling.TransferPairID != leg.ID {
		return nil
	}
	return sibling
}

func toStatementRow(op *model.OperationDetail) model.StatementRow {
	return model.StatementRow{
		Date:           op.Date,
		Amount:         op.Amount.Round(2),
		Category:       op.Category,
		ClientName:     op.ClientName,
		ClientTelegram: op.ClientTelegram,
		ClientEmail:    op.ClientEmail,
		WorkerName:     op.WorkerName,
		WorkerTelegram: op.WorkerTelegram,
		CashDeskName:   op.CashDeskName,
		Description:    op.Description,
	}
}

func clientDisplay(row model.StatementRow) string {
	parts := make([]string, 0, 2)
	if row.ClientName != "" {
		parts = append(parts, row.ClientName)
	}
	if row.ClientTelegram != "" {
		parts = append(parts, row.ClientTelegram)
	} else if row.ClientEmail != "" {
		parts = append(parts, row.ClientEmail)
	}
	return strings.Join(parts, " ")
}

func workerDisplay(row model.StatementRow) string {
	parts := make([]string, 0, 2)
	if row.WorkerName != "" {
		parts = append(parts, row.WorkerName)
	}
	if row.WorkerTelegram != "" {
		parts = append(parts, row.WorkerTelegram)
	}
	return strings.Join(parts, " ")
}

// exportDate renders dates in the dd.mm.yyyy display format used by the
// tabular export.
func exportDate(t time.Time) string {
	return t.Format("02.01.2006")
}
