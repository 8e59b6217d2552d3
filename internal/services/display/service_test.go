package display

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/museo-go/internal/services/assets"
	"github.com/bbernstein/museo-go/internal/services/playback"
	"github.com/bbernstein/museo-go/internal/services/pubsub"
	"github.com/bbernstein/museo-go/internal/services/trivia"
	"github.com/bbernstein/museo-go/pkg/sequence"
)

func newAssetRoot(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("img"), 0o644))
	}
	return root
}

func TestService_ImageAndText(t *testing.T) {
	root := newAssetRoot(t, "rooms/hall.jpg")
	ps := pubsub.New()
	sub := ps.Subscribe(pubsub.TopicDisplay, "", 16)
	s := NewService(assets.NewResolver(root), ps)

	require.NoError(t, s.ShowImage("rooms/hall"))
	s.ShowText("Bienvenidos")

	st := s.State()
	assert.Equal(t, "rooms/hall", st.Image)
	assert.Equal(t, "/assets/rooms/hall.jpg", st.ImageURL)
	assert.Equal(t, "Bienvenidos", st.Text)
	assert.Len(t, sub.Channel, 2)

	s.ClearImage()
	s.ClearText()
	st = s.State()
	assert.Empty(t, st.Image)
	assert.Empty(t, st.Text)
}

func TestService_MissingImageLeavesScreen(t *testing.T) {
	root := newAssetRoot(t, "a.png")
	s := NewService(assets.NewResolver(root), nil)

	require.NoError(t, s.ShowImage("a"))
	err := s.ShowImage("gone")
	assert.ErrorIs(t, err, assets.ErrAssetNotFound)
	assert.Equal(t, "a", s.State().Image)
}

func TestService_AvatarExpressions(t *testing.T) {
	root := newAssetRoot(t, "avatar/happy.png")
	s := NewService(assets.NewResolver(root), nil)

	require.NoError(t, s.ShowExpression("happy"))
	assert.Equal(t, "/assets/avatar/happy.png", s.State().AvatarURL)

	s.NarrationStarted("intro")
	assert.Equal(t, "intro", s.State().Speaking)

	s.ClearExpression()
	assert.Empty(t, s.State().Avatar)
}

func TestService_TriviaViewIsCopied(t *testing.T) {
	s := NewService(nil, nil)
	s.ShowTrivia(trivia.View{State: trivia.StateAwaitingAnswer, Question: "2+2?"})

	st := s.State()
	require.NotNil(t, st.Trivia)
	st.Trivia.Question = "changed"
	assert.Equal(t, "2+2?", s.State().Trivia.Question)

	s.HideTrivia()
	assert.Nil(t, s.State().Trivia)
}

func TestService_ActionAndReset(t *testing.T) {
	s := NewService(nil, nil)
	require.NoError(t, s.HandleAction("lights_on"))
	s.ShowText("x")
	assert.Equal(t, "lights_on", s.State().LastAction)

	s.Reset()
	st := s.State()
	assert.Empty(t, st.LastAction)
	assert.Empty(t, st.Text)
}

func TestService_StoppedSequenceBlanksScreen(t *testing.T) {
	s := NewService(nil, nil)
	player := playback.NewPlayer(nil, playback.Sinks{Text: s, Actions: s}, nil)
	player.AddObserver(s.HandlePlaybackEvent)

	instructions, issues := sequence.ParseString("Text: welcome\nWait: 60")
	require.Empty(t, issues)
	require.NoError(t, player.Start("intro", instructions))
	require.Eventually(t, func() bool { return s.State().Text == "welcome" }, time.Second, 5*time.Millisecond)

	player.Stop()
	assert.Empty(t, s.State().Text)

	// Other lifecycle events leave the screen alone
	s.ShowText("still here")
	s.HandlePlaybackEvent(playback.Event{Type: playback.EventSequenceFinished})
	assert.Equal(t, "still here", s.State().Text)
}
