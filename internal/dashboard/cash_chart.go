package dashboard

import (
	"kasa-backend/internal/cashregister"
	"kasa-backend/internal/httpx"

	"github.com/gofiber/fiber/v2"
)

// GET /api/reports/cash-differences?period=daily|weekly|monthly&count=7&branch_id=1
//
// Shortages and surpluses of closed sessions, bucketed by close date. Branch
// users always get their own branch; super admins see every branch unless
// branch_id is given.
func CashDifferencesHandler(svc *cashregister.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := httpx.ScopedBranch(c)
		if err != nil {
			return err
		}

		count := c.QueryInt("count", 0)
		if count < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "count cannot be negative")
		}

		report, err := svc.CashDifferenceReport(c.UserContext(), cashregister.ReportQuery{
			BranchID: branchID,
			Period:   cashregister.Period(c.Query("period", string(cashregister.PeriodDaily))),
			Count:    count,
		})
		if err != nil {
			return err
		}
		return c.JSON(report)
	}
}
