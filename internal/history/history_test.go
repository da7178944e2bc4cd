package history

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHash_NormalisesLanguage(t *testing.T) {
	require.Equal(t, Hash("python", "print(1)"), Hash(" Python ", "print(1)"))
	require.NotEqual(t, Hash("python", "print(1)"), Hash("ruby", "print(1)"))
	require.Len(t, Hash("", ""), 64)
}

func TestHash_SeparatorPreventsCollisions(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lang := rapid.StringMatching(`[a-z]{1,8}`).Draw(rt, "lang")
		code := rapid.String().Draw(rt, "code")
		shifted := lang[:len(lang)-1]
		moved := lang[len(lang)-1:] + code
		if Hash(lang, code) == Hash(shifted, moved) {
			rt.Fatalf("hash collision moving a byte across the boundary")
		}
	})
}

func TestStatus_IsValid(t *testing.T) {
	for _, s := range []Status{StatusOK, StatusFailed, StatusTimeout, StatusMissing, StatusUnsupported, StatusError, StatusCanceled} {
		require.True(t, s.IsValid(), s)
	}
	require.False(t, Status("pending").IsValid())
}
