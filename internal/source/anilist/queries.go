package anilist

const mediaFields = `
      id
      isAdult
      type
      seasonYear
      startDate { year }
      title { romaji english native }
      genres
      coverImage { large }
      description(asHtml: false)`

const mediaPageQuery = `
query MediaPage($type: MediaType!, $sort: [MediaSort!], $page: Int = 1, $perPage: Int = 50) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { hasNextPage currentPage }
    media(type: $type, sort: $sort) {` + mediaFields + `
      nextAiringEpisode { episode airingAt }
    }
  }
}`

const airingQuery = `
query Airing($page: Int = 1, $perPage: Int = 50, $from: Int!, $to: Int!) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { hasNextPage currentPage }
    airingSchedules(airingAt_greater: $from, airingAt_lesser: $to, sort: TIME) {
      id
      airingAt
      episode
      media {` + mediaFields + `
      }
    }
  }
}`

const mediaByIDQuery = `
query MediaById($id: Int!) {
  Media(id: $id) {` + mediaFields + `
    nextAiringEpisode { episode airingAt }
  }
}`
