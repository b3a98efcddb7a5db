package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func participant(userID, connID, name string) Participant {
	return Participant{
		UserID:   userID,
		ConnID:   connID,
		Name:     name,
		Status:   StatusOnline,
		JoinedAt: time.Now().UTC(),
	}
}

func Test_Join_Reconnect_Replaces_Old_Connection_And_Keeps_JoinedAt(t *testing.T) {
	req := require.New(t)
	room := NewRoom("A1B2C3", "", "", 100)

	first := participant("u1", "conn-1", "Ann")
	first.JoinedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	_, rejoined := room.Join(first)
	req.False(rejoined)

	// Same user comes back on a fresh connection before the old one is gone
	second := participant("u1", "conn-2", "Ann")
	stored, rejoined := room.Join(second)

	req.True(rejoined)
	req.Equal(first.JoinedAt, stored.JoinedAt)
	req.Equal(1, room.RosterSize())
	_, ok := room.Member("conn-1")
	req.False(ok)
	_, ok = room.Member("conn-2")
	req.True(ok)
}

func Test_Leave_Removes_Roster_And_Typing_Membership(t *testing.T) {
	req := require.New(t)
	room := NewRoom("A1B2C3", "", "", 100)
	room.Join(participant("u1", "conn-1", "Ann"))
	req.True(room.StartTyping("conn-1"))

	removed, ok := room.Leave("conn-1")

	req.True(ok)
	req.Equal("u1", removed.UserID)
	req.Equal(0, room.RosterSize())
	req.Empty(room.TypingNames())

	_, ok = room.Leave("conn-1")
	req.False(ok)
}

func Test_Append_Trims_Oldest_Beyond_Replay_Window(t *testing.T) {
	req := require.New(t)
	room := NewRoom("A1B2C3", "", "", 3)

	for _, content := range []string{"one", "two", "three", "four"} {
		room.Append(Message{Content: content, Kind: KindText})
	}

	messages := room.Messages()
	req.Len(messages, 3)
	req.Equal("two", messages[0].Content)
	req.Equal("four", messages[2].Content)
}

func Test_AppendUnlessUser_Skips_When_User_Reconnected(t *testing.T) {
	req := require.New(t)
	room := NewRoom("A1B2C3", "", "", 100)
	room.Join(participant("u1", "conn-2", "Ann"))

	appended := room.AppendUnlessUser("u1", NewSystemMessage("A1B2C3", "Ann left the room"))

	req.False(appended)
	req.Empty(room.Messages())

	room.Leave("conn-2")
	appended = room.AppendUnlessUser("u1", NewSystemMessage("A1B2C3", "Ann left the room"))
	req.True(appended)
	req.Len(room.Messages(), 1)
}

func Test_TypingNames_Falls_Back_To_Placeholder_For_Unresolved_Handle(t *testing.T) {
	req := require.New(t)
	room := NewRoom("A1B2C3", "", "", 100)
	room.Join(participant("u1", "conn-1", "Ann"))
	req.True(room.StartTyping("conn-1"))

	// A typing entry whose roster slot vanished must keep its place in the
	// list under the placeholder name, not disappear from the count.
	room.typing["ghost-conn"] = struct{}{}

	names := room.TypingNames()
	req.Len(names, 2)
	req.Contains(names, "Ann")
	req.Contains(names, UnknownTypingName)
}

func Test_StartTyping_Rejects_NonMember(t *testing.T) {
	req := require.New(t)
	room := NewRoom("A1B2C3", "", "", 100)

	req.False(room.StartTyping("stranger"))
	req.Empty(room.TypingNames())
}

func Test_Evictable_Requires_Empty_Roster_And_Idle_Time(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()

	empty := NewRoom("A1B2C3", "", "", 100)
	req.False(empty.Evictable(now, time.Hour))
	req.True(empty.Evictable(now.Add(2*time.Hour), time.Hour))

	occupied := NewRoom("D4E5F6", "", "", 100)
	occupied.Join(participant("u1", "conn-1", "Ann"))
	req.False(occupied.Evictable(now.Add(48*time.Hour), time.Hour))
}

func Test_RestoreRoom_Caps_History_And_Defaults_Name(t *testing.T) {
	req := require.New(t)
	history := []Message{
		{Content: "one"}, {Content: "two"}, {Content: "three"},
	}

	room := RestoreRoom("A1B2C3", history, 2)

	req.Equal("Room A1B2C3", room.Name)
	req.Equal(0, room.RosterSize())
	messages := room.Messages()
	req.Len(messages, 2)
	req.Equal("two", messages[0].Content)
}
