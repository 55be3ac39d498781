package onboarding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultNarrative(t *testing.T) {
	t.Parallel()

	formal := ResultNarrative(ResultKindFormal)
	require.Equal(t, "代注册申请已提交", formal.Title)

	auth := ResultNarrative(ResultKindAuth)
	require.Equal(t, "授权绑定完成", auth.Title)

	// unknown and absent kinds share the generic completion copy
	fallback := ResultNarrative("")
	require.Equal(t, "入驻流程已完成", fallback.Title)
	require.Equal(t, fallback, ResultNarrative("mystery"))
}
