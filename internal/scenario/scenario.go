// Package scenario 提供重排场景文件的加载与解码。
//
// 场景文件是一个 JSON 记录数组，每条记录为 {id, type, data} 信封，
// type 取 work_order / work_center / manufacturing_order 之一。
package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/chongpai/chongpai/pkg/model"
)

// 记录类型
const (
	TypeWorkOrder          = "work_order"
	TypeWorkCenter         = "work_center"
	TypeManufacturingOrder = "manufacturing_order"
)

// Record 场景文件中的一条记录
type Record struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Scenario 解码后的完整场景
type Scenario struct {
	WorkOrders          []*model.WorkOrder
	WorkCenters         []*model.WorkCenter
	ManufacturingOrders []*model.ManufacturingOrder
}

// Input 转换为引擎输入
func (s *Scenario) Input() *model.ReflowInput {
	return &model.ReflowInput{
		WorkOrders:          s.WorkOrders,
		WorkCenters:         s.WorkCenters,
		ManufacturingOrders: s.ManufacturingOrders,
	}
}

// LoadFile 从文件加载场景
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开场景文件失败: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load 从任意 Reader 加载场景
func Load(r io.Reader) (*Scenario, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("解析场景文件失败: %w", err)
	}

	return Decode(records)
}

// Decode 将记录信封解码为场景；未知类型视为错误
func Decode(records []Record) (*Scenario, error) {
	s := &Scenario{}

	for i, rec := range records {
		switch rec.Type {
		case TypeWorkOrder:
			wo := &model.WorkOrder{}
			if err := json.Unmarshal(rec.Data, wo); err != nil {
				return nil, fmt.Errorf("第 %d 条记录(%s)解码工单失败: %w", i, rec.ID, err)
			}
			if wo.ID == "" {
				wo.ID = rec.ID
			}
			s.WorkOrders = append(s.WorkOrders, wo)

		case TypeWorkCenter:
			wc := &model.WorkCenter{}
			if err := json.Unmarshal(rec.Data, wc); err != nil {
				return nil, fmt.Errorf("第 %d 条记录(%s)解码工作中心失败: %w", i, rec.ID, err)
			}
			if wc.ID == "" {
				wc.ID = rec.ID
			}
			s.WorkCenters = append(s.WorkCenters, wc)

		case TypeManufacturingOrder:
			mo := &model.ManufacturingOrder{}
			if err := json.Unmarshal(rec.Data, mo); err != nil {
				return nil, fmt.Errorf("第 %d 条记录(%s)解码制造订单失败: %w", i, rec.ID, err)
			}
			if mo.ID == "" {
				mo.ID = rec.ID
			}
			s.ManufacturingOrders = append(s.ManufacturingOrders, mo)

		default:
			return nil, fmt.Errorf("第 %d 条记录(%s)类型未知: %q", i, rec.ID, rec.Type)
		}
	}

	return s, nil
}
