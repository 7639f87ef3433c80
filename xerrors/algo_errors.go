package xerrors

// 以下为哨兵错误，仅用于 errors.Is 判等；返回错误时应通过对应构造函数创建新值.
var (
	// ErrEmptyData 输入数据为空。
	ErrEmptyData = New(ErrInvalidArg, 400001, "empty data", "input sequence must not be empty", nil)
	// ErrInvalidConfig 仿真配置非法。
	ErrInvalidConfig = New(ErrInvalidArg, 400005, "invalid config", "", nil)
	// ErrLengthMismatch 序列长度不一致。
	ErrLengthMismatch = New(ErrInvalidArg, 400007, "length mismatch", "sequences must have identical length", nil)
	// ErrUnknownNoiseShape 未知的噪声分布形状。
	ErrUnknownNoiseShape = New(ErrInvalidArg, 400019, "unknown noise shape", "supported shapes: uniform, gaussian", nil)
	// ErrDegenerateFusion 融合分母非正，属于内部不变量被破坏。
	ErrDegenerateFusion = New(ErrInternal, 500003, "degenerate fusion", "prior variance plus measurement variance must be positive", nil)
	// ErrRenderFailed 图表输出失败。
	ErrRenderFailed = New(ErrInternal, 500008, "render failed", "", nil)
)

// InvalidConfig 创建配置非法错误.
func InvalidConfig(detail string, cause error) *Error {
	return New(ErrInvalidArg, ErrInvalidConfig.Code, ErrInvalidConfig.Message, detail, cause)
}

// EmptyData 创建输入为空错误.
func EmptyData(detail string) *Error {
	return New(ErrInvalidArg, ErrEmptyData.Code, ErrEmptyData.Message, detail, nil)
}

// LengthMismatch 创建序列长度不一致错误.
func LengthMismatch(want, got int) *Error {
	return New(ErrInvalidArg, ErrLengthMismatch.Code, ErrLengthMismatch.Message, "", nil).
		WithDetail("want %d samples, got %d", want, got).
		WithContext("want", want).
		WithContext("got", got)
}

// UnknownNoiseShape 创建未知噪声形状错误.
func UnknownNoiseShape(shape string) *Error {
	return New(ErrInvalidArg, ErrUnknownNoiseShape.Code, ErrUnknownNoiseShape.Message, "", nil).
		WithDetail("shape %q is not supported", shape)
}

// DegenerateFusion 创建融合退化错误.
func DegenerateFusion(priorVariance, measurementVariance float64) *Error {
	return New(ErrInternal, ErrDegenerateFusion.Code, ErrDegenerateFusion.Message, "", nil).
		WithDetail("prior variance %g, measurement variance %g", priorVariance, measurementVariance).
		WithContext("prior_variance", priorVariance).
		WithContext("measurement_variance", measurementVariance)
}

// RenderFailed 包装图表输出失败的原始错误.
func RenderFailed(detail string, cause error) *Error {
	return New(ErrInternal, ErrRenderFailed.Code, ErrRenderFailed.Message, detail, cause)
}
