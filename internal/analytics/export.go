package analytics

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

var csvHeader = []string{"Mã ĐH", "Thời gian", "Khách hàng", "Loại", "Tổng tiền", "Trạng thái", "Thanh toán"}

var orderTypeLabels = map[domain.OrderType]string{
	domain.OrderTypeDineIn:   "Uống tại chỗ",
	domain.OrderTypeDelivery: "Giao hàng",
}

// WriteOrdersCSV writes one row per order with times rendered in loc.
func WriteOrdersCSV(w io.Writer, orders []domain.Order, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, o := range orders {
		customer := o.Customer.Name
		if customer == "" {
			customer = "N/A"
		}
		orderType, ok := orderTypeLabels[o.Customer.Type]
		if !ok {
			orderType = "N/A"
		}
		paid := "Chưa thanh toán"
		if o.IsPaid {
			paid = "Đã thanh toán"
		}

		row := []string{
			"#" + domain.ShortOrderID(o.ID),
			o.CreatedAt.In(loc).Format("15:04:05 02/01/2006"),
			customer,
			orderType,
			strconv.FormatInt(o.Total, 10),
			o.Status.Label(),
			paid,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
