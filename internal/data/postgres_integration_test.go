//go:build integration && postgres

package data_test

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"go-course-format/internal/config"
	"go-course-format/internal/data"
)

var pgDB *sqlx.DB

func TestMain(m *testing.M) {
	ctx := context.Background()
	container := mustStartPostgres(ctx)
	code := m.Run()
	if pgDB != nil {
		pgDB.Close()
	}
	if err := container.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func mustStartPostgres(ctx context.Context) *postgres.PostgresContainer {
	container, err := postgres.Run(ctx,
		"postgres:15.3-alpine",
		postgres.WithDatabase("course"),
		postgres.WithUsername("course"),
		postgres.WithPassword("course"),
		testcontainers.WithWaitStrategy(
			// The server restarts once after the init phase.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start container: %s", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("failed to obtain connection string: %s", err)
	}

	cfg := config.DBConfig{Driver: "postgres", DSN: dsn, MigrationsPath: filepath.Join("..", "..", "migrations")}
	if err := data.ApplyMigrations(cfg); err != nil {
		log.Fatalf("failed to migrate postgres: %s", err)
	}
	pgDB, err = data.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to connect to postgres container: %s", err)
	}
	return container
}

func pgInsert(t *testing.T, query string, args ...interface{}) int64 {
	t.Helper()
	var id int64
	require.NoError(t, pgDB.QueryRowx(pgDB.Rebind(query+" RETURNING id"), args...).Scan(&id))
	return id
}

func TestPostgresCourse(t *testing.T) {
	ctx := context.Background()
	repo := data.NewCourseRepository(pgDB)
	courseID := pgInsert(t, `INSERT INTO courses (fullname, shortname) VALUES (?, ?)`, "Physics", "physics")

	require.NoError(t, repo.SetMarker(ctx, courseID, 3))
	course, err := repo.GetCourse(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, 3, course.Marker)
	assert.False(t, course.GroupModeForce)

	n, err := repo.CreateSectionsIfMissing(ctx, courseID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = repo.CreateSectionsIfMissing(ctx, courseID, 2)
	require.NoError(t, err)
	assert.Zero(t, n)

	sections, err := repo.Sections(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, sections, 3)
	assert.True(t, sections[0].Visible)
}

func TestPostgresForum(t *testing.T) {
	ctx := context.Background()
	forums := data.NewForumRepository(pgDB)
	reads := data.NewReadRepository(pgDB)

	userID := pgInsert(t, `INSERT INTO users (username, firstname, lastname, trackforums) VALUES (?, ?, ?, 1)`, "pg.author", "Pat", "Green")
	courseID := pgInsert(t, `INSERT INTO courses (fullname, shortname) VALUES (?, ?)`, "Forums", "forums")
	forumID := pgInsert(t, `INSERT INTO forums (course_id, name) VALUES (?, ?)`, courseID, "General")
	groupID := pgInsert(t, `INSERT INTO course_groups (course_id, name) VALUES (?, ?)`, courseID, "Red")

	discussion := func(name string, group, created int64) (int64, int64) {
		d := pgInsert(t, `INSERT INTO forum_discussions (forum_id, name, firstpost, userid, groupid, timemodified, usermodified)
			VALUES (?, ?, 0, ?, ?, ?, ?)`, forumID, name, userID, group, created, userID)
		p := pgInsert(t, `INSERT INTO forum_posts (discussion_id, parent, userid, created, modified, subject, message)
			VALUES (?, 0, ?, ?, ?, ?, '')`, d, userID, created, created, name)
		_, err := pgDB.Exec(pgDB.Rebind(`UPDATE forum_discussions SET firstpost = ? WHERE id = ?`), p, d)
		require.NoError(t, err)
		return d, p
	}
	everyone, firstPost := discussion("Everyone", data.AllParticipants, 100)
	grouped, _ := discussion("Grouped", groupID, 200)
	reply := pgInsert(t, `INSERT INTO forum_posts (discussion_id, parent, userid, created, modified, subject, message)
		VALUES (?, ?, ?, 300, 300, 'Re', '')`, everyone, firstPost, userID)

	got, err := forums.Discussions(ctx, data.DiscussionQuery{ForumID: forumID, Groups: []int64{groupID}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, grouped, got[0].ID)
	assert.Equal(t, "Pat", got[0].Author.FirstName)

	got, err = forums.Discussions(ctx, data.DiscussionQuery{ForumID: forumID, Groups: []int64{}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, everyone, got[0].ID)

	counts, err := forums.CountReplies(ctx, forumID, []int64{everyone, grouped})
	require.NoError(t, err)
	assert.Equal(t, data.ReplyCount{DiscussionID: everyone, Replies: 1, LastPostID: reply}, counts[everyone])

	post, err := forums.FirstPost(ctx, everyone)
	require.NoError(t, err)
	require.NoError(t, reads.MarkRead(ctx, userID, forumID, post, 400))
	require.NoError(t, reads.MarkRead(ctx, userID, forumID, post, 500))
	unreads, err := reads.Unreads(ctx, forumID, userID, 0)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{everyone: 1, grouped: 1}, unreads)
}

func TestPostgresUser(t *testing.T) {
	ctx := context.Background()
	repo := data.NewUserRepository(pgDB)

	require.NoError(t, repo.CreateUser(ctx, &data.User{
		Username: "pg.new", AuthSubject: "sub-pg", FirstName: "New", TrackForums: true,
	}))
	u, err := repo.GetBySubject(ctx, "sub-pg")
	require.NoError(t, err)
	assert.True(t, u.TrackForums)
	assert.False(t, u.IsGuest)
}
