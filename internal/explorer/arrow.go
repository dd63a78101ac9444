package explorer

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/eda-explorer/backend/internal/models"
)

// ArrowContentType is the media type of an Arrow IPC stream.
const ArrowContentType = "application/vnd.apache.arrow.stream"

// Schema maps the table columns to Arrow fields. Every field is nullable.
func Schema(t *models.Table) *arrow.Schema {
	fields := make([]arrow.Field, t.NumCols())
	for i, c := range t.Columns {
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c.Type), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(t models.ScalarType) arrow.DataType {
	switch t {
	case models.TypeInt64:
		return arrow.PrimitiveTypes.Int64
	case models.TypeFloat64:
		return arrow.PrimitiveTypes.Float64
	case models.TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case models.TypeDatetime:
		return &arrow.TimestampType{Unit: arrow.Nanosecond}
	}
	return arrow.BinaryTypes.String
}

// WriteArrow writes t unmodified as a single-batch Arrow IPC stream.
func WriteArrow(w io.Writer, t *models.Table) error {
	mem := memory.NewGoAllocator()
	schema := Schema(t)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, c := range t.Columns {
		if err := appendColumn(b.Field(i), c); err != nil {
			return err
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	wr := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := wr.Write(rec); err != nil {
		_ = wr.Close()
		return fmt.Errorf("write arrow record: %w", err)
	}
	return wr.Close()
}

func appendColumn(fb array.Builder, c models.Column) error {
	switch bld := fb.(type) {
	case *array.Int64Builder:
		for _, v := range c.Values {
			if v.IsMissing() {
				bld.AppendNull()
				continue
			}
			bld.Append(v.Int)
		}
	case *array.Float64Builder:
		for _, v := range c.Values {
			f, ok := v.Number()
			if !ok {
				bld.AppendNull()
				continue
			}
			bld.Append(f)
		}
	case *array.BooleanBuilder:
		for _, v := range c.Values {
			if v.IsMissing() {
				bld.AppendNull()
				continue
			}
			bld.Append(v.Bool)
		}
	case *array.TimestampBuilder:
		for _, v := range c.Values {
			if v.IsMissing() {
				bld.AppendNull()
				continue
			}
			bld.Append(arrow.Timestamp(v.Time.UnixNano()))
		}
	case *array.StringBuilder:
		for _, v := range c.Values {
			if v.IsMissing() {
				bld.AppendNull()
				continue
			}
			bld.Append(v.String())
		}
	default:
		return fmt.Errorf("unsupported arrow builder %T for column %q", fb, c.Name)
	}
	return nil
}
