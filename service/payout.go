package service

import (
	"math/bits"

	"streambet/models"

	"github.com/google/uuid"
)

// ComputeSettlement partitions the active wagers of a market by outcome and
// computes each terminal state and wallet credit. It performs no I/O.
//
// When nobody backed the winner every wager is refunded. Otherwise each winner
// receives amount + floor(losingPool*amount/winningPool) and losers receive
// nothing. Units lost to flooring stay in Remainder.
func ComputeSettlement(wagers []*models.Wager, winningOutcomeID uuid.UUID) *models.SettlementResult {
	result := &models.SettlementResult{
		WinningOutcomeID: winningOutcomeID,
		Settlements:      make([]*models.WagerSettlement, 0, len(wagers)),
	}

	for _, w := range wagers {
		result.TotalPool += w.Amount
		if w.OutcomeID == winningOutcomeID {
			result.WinningPool += w.Amount
		}
	}
	result.LosingPool = result.TotalPool - result.WinningPool

	if result.WinningPool == 0 {
		result.Refunded = true
		for _, w := range wagers {
			result.Settlements = append(result.Settlements, &models.WagerSettlement{
				Wager:  w,
				Status: models.WagerStatusRefunded,
				Credit: w.Amount,
			})
			result.TotalPaid += w.Amount
		}
		return result
	}

	var totalGain int64
	for _, w := range wagers {
		if w.OutcomeID != winningOutcomeID {
			result.Settlements = append(result.Settlements, &models.WagerSettlement{
				Wager:  w,
				Status: models.WagerStatusLost,
			})
			continue
		}

		gain := proportionalGain(result.LosingPool, w.Amount, result.WinningPool)
		totalGain += gain
		payout := w.Amount + gain
		result.Settlements = append(result.Settlements, &models.WagerSettlement{
			Wager:  w,
			Status: models.WagerStatusWon,
			Credit: payout,
		})
		result.TotalPaid += payout
	}
	result.Remainder = result.LosingPool - totalGain

	return result
}

// proportionalGain returns floor(losingPool*amount/winningPool).
// amount <= winningPool, so the quotient always fits in 64 bits.
func proportionalGain(losingPool, amount, winningPool int64) int64 {
	if losingPool <= 0 || amount <= 0 || winningPool <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(losingPool), uint64(amount))
	quo, _ := bits.Div64(hi, lo, uint64(winningPool))
	return int64(quo)
}
